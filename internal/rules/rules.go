// Package rules 报名资格、社团排期、儿童信息与账号注册的纯校验逻辑。
//
// 本包不访问数据库、不感知请求身份：调用方（Service 层）负责在同一事务内
// 取齐输入数据并完成鉴权，再把已授权的实体交给这里判断。
package rules

import (
	"sort"
	"strings"
	"time"
)

// NonFieldKey 整条记录级别错误（如重复登记）在 FieldErrors 中使用的键
const NonFieldKey = "non_field_errors"

// 通用错误文案
const (
	MsgRequired     = "This field is required."
	MsgInvalidTime  = "Enter a valid time."
	MsgInvalidDate  = "Enter a valid date."
	MsgInvalidValue = "Ensure this value is greater than or equal to 0."
)

// FieldErrors 字段名 → 违反的规则文案列表
type FieldErrors map[string][]string

// Add 追加一条字段错误
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Has 判断某字段是否已有错误
func (fe FieldErrors) Has(field string) bool {
	return len(fe[field]) > 0
}

// Empty 没有任何错误时返回 true
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Fields 按字母序返回出错字段名
func (fe FieldErrors) Fields() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Error 实现 error 接口，便于 Service 层直接以 error 返回
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, k := range fe.Fields() {
		parts = append(parts, k+": "+strings.Join(fe[k], " "))
	}
	return strings.Join(parts, "; ")
}

// AgeOn 计算出生日期为 dob 的人在 today 当天的整岁年龄。
// 仅比较 (月, 日)：今天的 (月, 日) 早于生日则减一岁。
func AgeOn(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

// DateOnly 截断为当天零点（保留时区），用于日期比较
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDate 只比较年月日
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateBefore a 的日期是否严格早于 b 的日期
func dateBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
