// Package apperr 定义了学习服务与用户服务共用的错误分类，并把它们映射为 HTTP 状态码。
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 是错误的类别。
type Kind int

const (
	Internal           Kind = iota // 未预期的内部错误
	BadInput                       // 缺失或非法的请求字段
	NotFound                       // 资源不存在或不属于当前用户
	NotReady                       // 文档尚未完成处理
	EmptyContent                   // 提取结果只有空白
	ServiceUnavailable             // 外部服务凭证缺失或熔断
	GenerationFailure              // LLM 调用失败且没有任何部分结果
	Unauthorized                   // 未认证或凭证错误
	Conflict                       // 唯一约束冲突
	RateLimited                    // 请求过于频繁
)

var kindNames = map[Kind]string{
	Internal:           "internal_failure",
	BadInput:           "bad_input",
	NotFound:           "not_found",
	NotReady:           "not_ready",
	EmptyContent:       "empty_content",
	ServiceUnavailable: "service_unavailable",
	GenerationFailure:  "generation_failure",
	Unauthorized:       "unauthorized",
	Conflict:           "conflict",
	RateLimited:        "rate_limited",
}

var kindStatus = map[Kind]int{
	Internal:           http.StatusInternalServerError,
	BadInput:           http.StatusBadRequest,
	NotFound:           http.StatusNotFound,
	NotReady:           http.StatusConflict,
	EmptyContent:       http.StatusUnprocessableEntity,
	ServiceUnavailable: http.StatusServiceUnavailable,
	GenerationFailure:  http.StatusInternalServerError,
	Unauthorized:       http.StatusUnauthorized,
	Conflict:           http.StatusConflict,
	RateLimited:        http.StatusTooManyRequests,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Status 返回该类别对应的 HTTP 状态码。
func (k Kind) Status() int {
	if s, ok := kindStatus[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error 携带类别、面向用户的消息以及底层错误。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建一个不带底层错误的分类错误。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 与 New 相同，但支持格式化消息。
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 用类别和消息包装一个底层错误。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 返回错误链中第一个 *Error 的类别，没有时视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is 判断错误链中是否包含指定类别的错误。
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Status 返回错误对应的 HTTP 状态码。
func Status(err error) int {
	return KindOf(err).Status()
}

// Message 返回可以展示给客户端的消息。内部错误只返回通用描述。
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Internal && e.Message == "" {
			return "internal server error"
		}
		if e.Message != "" {
			return e.Message
		}
		return e.Kind.String()
	}
	return "internal server error"
}
