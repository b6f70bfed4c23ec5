package errs

import (
	"strconv"
)

// CodeError is the JSON error body returned by the HTTP API.
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) WithDetail(detail string) *CodeError {
	d := detail
	if e.Detail != "" {
		d = e.Detail + ", " + detail
	}
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: d}
}

func (e *CodeError) Error() string {
	s := strconv.Itoa(e.Code) + " " + e.Msg
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

var (
	ErrTokenMissing = NewCodeError(1501, "token missing")
	ErrTokenInvalid = NewCodeError(1502, "token invalid")
	ErrInternal     = NewCodeError(1500, "internal error")
)
