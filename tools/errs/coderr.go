package errs

import (
	"errors"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError 带业务码的错误。网关把它直接映射成发给客户端的 error 帧。
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

// WithDetail 追加细节，返回新实例，预定义码本身不可变
func (e *CodeError) WithDetail(detail string) *CodeError {
	ret := e.clone()
	if ret.Detail == "" {
		ret.Detail = detail
	} else {
		ret.Detail += ", " + detail
	}
	return ret
}

// Wrap 挂上调用栈
func (e *CodeError) Wrap() error {
	return pkgerr.WithStack(e)
}

// WrapMsg 追加细节并挂栈
func (e *CodeError) WrapMsg(msg string) error {
	return pkgerr.WithStack(e.WithDetail(msg))
}

// Is 按业务码比较，配合 errors.Is 使用
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == e.Code
}

// CodeOf 取出错误中的业务码；非 CodeError 一律按内部错误处理
func CodeOf(err error) (int, string) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code, ce.Msg
	}
	return ServerInternalError.Code, ServerInternalError.Msg
}

// Wrap 为普通错误挂栈
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithStack(err)
}

// WrapMsg 为普通错误挂栈并加消息
func WrapMsg(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithMessage(pkgerr.WithStack(err), msg)
}
