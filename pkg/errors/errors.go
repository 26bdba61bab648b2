// Package errors 提供统一的错误定义
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeUnauthorized       ErrorCode = "1002"
	CodeForbidden          ErrorCode = "1003"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"

	// 资源错误 (3xxx)
	CodeProjectNotFound  ErrorCode = "3001"
	CodeChapterNotFound  ErrorCode = "3002"
	CodeOutlineNotFound  ErrorCode = "3003"
	CodeVersionNotFound  ErrorCode = "3004"
	CodeProviderNotFound ErrorCode = "3005"

	// 业务错误 (4xxx)
	CodeGenerationFailed    ErrorCode = "4001"
	CodeEvaluationParse     ErrorCode = "4002"
	CodeInvalidChapterState ErrorCode = "4003"
	CodeRunAlreadyActive    ErrorCode = "4004"
	CodeLLMCallFailed       ErrorCode = "4005"
	CodeEmbeddingFailed     ErrorCode = "4006"
	CodePreviousPending     ErrorCode = "4007"

	// 外部服务错误 (5xxx)
	CodeDatabaseError    ErrorCode = "5001"
	CodeCacheError       ErrorCode = "5002"
	CodeVectorDBError    ErrorCode = "5003"
	CodeLLMProviderError ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 支持按错误码比较
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// WithDetail 添加详细信息
func (e *AppError) WithDetail(detail string) *AppError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// WithError 添加底层错误
func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodeInvalidChapterState, CodePreviousPending:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeProjectNotFound, CodeChapterNotFound, CodeOutlineNotFound, CodeVersionNotFound, CodeProviderNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeRunAlreadyActive:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrConflict           = New(CodeConflict, "resource conflict")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrProjectNotFound  = New(CodeProjectNotFound, "project not found")
	ErrChapterNotFound  = New(CodeChapterNotFound, "chapter not found")
	ErrOutlineNotFound  = New(CodeOutlineNotFound, "chapter outline not found")
	ErrVersionNotFound  = New(CodeVersionNotFound, "chapter version not found")
	ErrProviderNotFound = New(CodeProviderNotFound, "llm provider not found")

	ErrGenerationFailed    = New(CodeGenerationFailed, "all chapter versions failed to generate")
	ErrEvaluationParse     = New(CodeEvaluationParse, "evaluation result not parseable")
	ErrInvalidChapterState = New(CodeInvalidChapterState, "operation not allowed in current chapter state")
	ErrRunAlreadyActive    = New(CodeRunAlreadyActive, "a creation run is already active for this project")
	ErrLLMCallFailed       = New(CodeLLMCallFailed, "LLM call failed")

	ErrPreviousChapterPending = New(CodePreviousPending, "previous chapter is not finalized yet")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}
