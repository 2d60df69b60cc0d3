package gateway

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// Kind 网关错误分类
type Kind string

const (
	// KindRemote 远程调用失败：网络、鉴权、配额或服务端错误
	KindRemote Kind = "RemoteError"
	// KindSchemaViolation 结构化响应与声明的 schema 不符
	KindSchemaViolation Kind = "SchemaViolation"
	// KindMalformedInput 调用方传入的数据编码不正确
	KindMalformedInput Kind = "MalformedInput"
)

// 用于 errors.Is 的哨兵错误
var (
	ErrRemote          = &Error{Kind: KindRemote}
	ErrSchemaViolation = &Error{Kind: KindSchemaViolation}
	ErrMalformedInput  = &Error{Kind: KindMalformedInput}
)

// Error 网关操作错误
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		if e.Err == nil {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 匹配哨兵错误
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf 返回 err 链上第一个网关错误的分类，没有则为空
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// StatusCode 远程错误的 HTTP 状态码，无法得知时返回 0
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return oaiErr.StatusCode
	}
	var dl *downloadError
	if errors.As(err, &dl) {
		return dl.StatusCode
	}
	return 0
}

func remoteErr(op string, err error) error {
	// 已分类的错误不再包装
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	return &Error{Kind: KindRemote, Op: op, Err: err}
}

func schemaErr(op string, err error) error {
	return &Error{Kind: KindSchemaViolation, Op: op, Err: err}
}

func malformedErr(op string, err error) error {
	return &Error{Kind: KindMalformedInput, Op: op, Err: err}
}

// downloadError 视频下载的非 2xx 响应
type downloadError struct {
	StatusCode int
	Body       string
}

func (e *downloadError) Error() string {
	return fmt.Sprintf("下载失败 (状态码 %d): %s", e.StatusCode, e.Body)
}
