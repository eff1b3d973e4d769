// Package mailer 通过 Amazon SES 发送报名通知邮件
package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"club-bookings/backend/config"
)

// sesAPI SES 客户端中用到的方法
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EnrollmentNotice 报名 / 取消通知内容
type EnrollmentNotice struct {
	ParentEmail string
	ParentName  string
	ChildName   string
	ClubName    string
	StartDate   time.Time
	EndDate     time.Time
	StartTime   string // HH:MM
	EndTime     string
	Frequency   string
}

// Mailer SES 邮件发送器；未配置发件地址时只记录日志不发送
type Mailer struct {
	client  sesAPI
	from    string
	baseURL string
	enabled bool
	logger  *zap.Logger
}

// New 根据配置创建 Mailer
func New(ctx context.Context, cfg *config.MailConfig, baseURL string, logger *zap.Logger) (*Mailer, error) {
	if cfg.FromEmail == "" {
		logger.Info("邮件服务未启用：mail.from_email 未配置")
		return &Mailer{enabled: false, baseURL: baseURL, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	logger.Info("邮件服务已启用",
		zap.String("from", cfg.FromEmail),
		zap.String("region", cfg.Region),
	)
	return newWithClient(sesv2.NewFromConfig(awsCfg), cfg, baseURL, logger), nil
}

func newWithClient(client sesAPI, cfg *config.MailConfig, baseURL string, logger *zap.Logger) *Mailer {
	from := cfg.FromEmail
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromEmail)
	}
	return &Mailer{
		client:  client,
		from:    from,
		baseURL: baseURL,
		enabled: true,
		logger:  logger,
	}
}

// Enabled 是否真正发送邮件
func (m *Mailer) Enabled() bool { return m.enabled }

// EnrollmentConfirmed 报名成功通知
func (m *Mailer) EnrollmentConfirmed(ctx context.Context, n EnrollmentNotice) error {
	subject := fmt.Sprintf("%s is enrolled in %s", n.ChildName, n.ClubName)
	return m.sendNotice(ctx, subject, "confirmed", n)
}

// EnrollmentCancelled 取消报名通知
func (m *Mailer) EnrollmentCancelled(ctx context.Context, n EnrollmentNotice) error {
	subject := fmt.Sprintf("%s's place in %s has been cancelled", n.ChildName, n.ClubName)
	return m.sendNotice(ctx, subject, "cancelled", n)
}

func (m *Mailer) sendNotice(ctx context.Context, subject, kind string, n EnrollmentNotice) error {
	if !m.enabled {
		m.logger.Debug("邮件服务未启用，跳过发送",
			zap.String("to", n.ParentEmail),
			zap.String("kind", kind),
		)
		return nil
	}

	data := noticeData{EnrollmentNotice: n, Kind: kind, DashboardURL: m.baseURL + "/dashboard"}
	htmlBody, textBody, err := render(data)
	if err != nil {
		return err
	}
	return m.send(ctx, n.ParentEmail, subject, htmlBody, textBody)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", to, err)
	}

	fields := []zap.Field{zap.String("to", to), zap.String("subject", subject)}
	if out != nil && out.MessageId != nil {
		fields = append(fields, zap.String("message_id", *out.MessageId))
	}
	m.logger.Info("邮件发送成功", fields...)
	return nil
}

// ── 模板 ──

type noticeData struct {
	EnrollmentNotice
	Kind         string // confirmed | cancelled
	DashboardURL string
}

func (d noticeData) Dates() string {
	start := d.StartDate.Format("Mon 2 Jan 2006")
	if d.StartDate.Equal(d.EndDate) {
		return start
	}
	return start + " to " + d.EndDate.Format("Mon 2 Jan 2006")
}

const textTmpl = `Hi {{.ParentName}},

{{if eq .Kind "confirmed"}}{{.ChildName}} is now enrolled in {{.ClubName}}.{{else}}{{.ChildName}}'s place in {{.ClubName}} has been cancelled.{{end}}

When: {{.Dates}}, {{.StartTime}}-{{.EndTime}} ({{.Frequency}})

Manage bookings: {{.DashboardURL}}

---
This is an automated email. Please do not reply.
`

const htmlTmpl = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi {{.ParentName}},</p>
	{{if eq .Kind "confirmed"}}
	<p><strong>{{.ChildName}}</strong> is now enrolled in <strong>{{.ClubName}}</strong>.</p>
	{{else}}
	<p><strong>{{.ChildName}}</strong>'s place in <strong>{{.ClubName}}</strong> has been cancelled.</p>
	{{end}}
	<p>When: {{.Dates}}, {{.StartTime}}-{{.EndTime}} ({{.Frequency}})</p>
	<p><a href="{{.DashboardURL}}">Manage bookings</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>
`

var (
	textTemplate = texttemplate.Must(texttemplate.New("notice.txt").Parse(textTmpl))
	htmlTemplate = htmltemplate.Must(htmltemplate.New("notice.html").Parse(htmlTmpl))
)

func render(data noticeData) (string, string, error) {
	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("渲染 HTML 邮件失败: %w", err)
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("渲染文本邮件失败: %w", err)
	}
	return html.String(), text.String(), nil
}
