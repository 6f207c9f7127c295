// Package client is the Go API client for the check-in service: token
// storage, session management with single-flight refresh, typed endpoint
// methods and notification grouping.
package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorKind classifies API failures so callers can branch without string
// matching.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindPermission ErrorKind = "permission_denied"
	KindConflict   ErrorKind = "conflict"
	KindRateLimit  ErrorKind = "rate_limited"
	KindNotFound   ErrorKind = "not_found"
	KindTransient  ErrorKind = "transient"
)

// APIError is a failure reported by the server or the transport. Detail is
// the raw server message; Message is the friendly text shown to users.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Detail  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Detail)
}

// genericFailure is the fallback for any server message not in the table.
const genericFailure = "操作失败，请稍后再试"

// friendlyMessages maps raw server details to user-facing text. Unmapped
// details fall through to genericFailure.
var friendlyMessages = map[string]string{
	"Invalid phone number":     "手机号格式不正确",
	"Password too short":       "密码至少需要 8 位",
	"Invalid SMS code":         "验证码错误",
	"Phone already registered": "该手机号已注册",
	"User not found":           "用户不存在",
	"Invalid credentials":      "手机号或密码错误",
	"Refresh token revoked":    "登录已失效，请重新登录",
	"Refresh token expired":    "登录已过期，请重新登录",
	"Cannot add yourself":      "不能添加自己为好友",
	"Already friends":          "你们已经是好友啦",
	"Blocked":                  "对方已屏蔽你",
	"Friend not found":         "好友不存在",
	"Reminders disabled":       "对方关闭了提醒功能",
	"Group not found":          "群组不存在",
	"Invite code required":     "需要正确的邀请码才能加入",
	"Apply cooldown":           "申请太频繁，请 24 小时后再试",
	"Not allowed":              "没有权限执行此操作",
	"Not a private group":      "只有私密群组才有邀请码",
	"Request not found":        "申请不存在或已处理",
	"Edit window expired":      "超过可编辑时间，无法修改",
	"No check-in for today":    "今天还没有打卡",
	"No check-in for this date": "这一天没有打卡记录",
	"Notification not found":   "通知不存在",
	"Rate limit exceeded":      "请求太频繁，请稍后再试",
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindAuth
	case http.StatusForbidden:
		return KindPermission
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusBadRequest:
		return KindValidation
	default:
		return KindTransient
	}
}

// errorBody is the server error shape. detail is usually a string but
// validation errors may carry a list of {msg} objects.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func parseDetail(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}

func newAPIError(status int, body []byte) *APIError {
	detail := ""
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Detail != nil {
		detail = parseDetail(eb.Detail)
	}
	msg, ok := friendlyMessages[detail]
	if !ok {
		msg = genericFailure
	}
	kind := kindForStatus(status)
	// Some conflicts and rate limits ride on 400; the detail is the tell.
	switch detail {
	case "Already friends", "Cannot add yourself", "Phone already registered":
		kind = KindConflict
	}
	return &APIError{Kind: kind, Status: status, Detail: detail, Message: msg}
}

func validationError(msg string) *APIError {
	return &APIError{Kind: KindValidation, Message: msg}
}

func transientError(err error) *APIError {
	return &APIError{Kind: KindTransient, Detail: err.Error(), Message: "网络异常，请检查网络后重试"}
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	ae, ok := err.(*APIError)
	return ok && ae.Kind == KindNotFound
}

// IsAuthError reports whether err means the session is gone for good.
func IsAuthError(err error) bool {
	ae, ok := err.(*APIError)
	return ok && ae.Kind == KindAuth
}

// IsRateLimited reports whether err is a cooldown or daily-limit rejection.
func IsRateLimited(err error) bool {
	ae, ok := err.(*APIError)
	return ok && ae.Kind == KindRateLimit
}
