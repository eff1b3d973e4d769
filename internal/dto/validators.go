package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"club-bookings/backend/internal/rules"
)

// RegisterValidators 向 gin 默认校验引擎注册自定义规则，并让错误字段名使用 json/form 标签
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return fmt.Errorf("注册 notblank 失败: %w", err)
	}
	if err := v.RegisterValidation("isodate", isISODate); err != nil {
		return fmt.Errorf("注册 isodate 失败: %w", err)
	}
	return nil
}

// fieldName 优先取 json 标签，其次 form 标签
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// isISODate YYYY-MM-DD
func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

// ParseDate 解析 YYYY-MM-DD；空串返回 nil, true
func ParseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// BindingErrors 将 validator.ValidationErrors 转成字段错误表；非校验错误返回 false
func BindingErrors(err error) (rules.FieldErrors, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := rules.FieldErrors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), bindingMessage(fe))
	}
	return out, true
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return rules.MsgRequired
	case "email":
		return "Enter a valid email address."
	case "uuid":
		return "Enter a valid identifier."
	case "isodate":
		return rules.MsgInvalidDate
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. Expected one of: %s.", fe.Param())
	default:
		return "Enter a valid value."
	}
}
