package errs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Stable error codes. They form a closed taxonomy; handlers match on the
// code, never on message text.
const (
	CodeDatabase       = 1001
	CodeAuthentication = 1002
	CodeAuthorization  = 1003
	CodeValidation     = 1004
	CodeNotFound       = 1005
	CodeForbidden      = 1006
	CodeBadRequest     = 1007
	CodeNetwork        = 1008
	CodeInternal       = 1009
)

var (
	ErrDatabase       = NewCodeError(CodeDatabase, "database error")
	ErrAuthentication = NewCodeError(CodeAuthentication, "authentication failed")
	ErrAuthorization  = NewCodeError(CodeAuthorization, "not authorized")
	ErrValidation     = NewCodeError(CodeValidation, "validation failed")
	ErrNotFound       = NewCodeError(CodeNotFound, "not found")
	ErrForbidden      = NewCodeError(CodeForbidden, "forbidden")
	ErrBadRequest     = NewCodeError(CodeBadRequest, "bad request")
	ErrNetwork        = NewCodeError(CodeNetwork, "network error")
	ErrInternal       = NewCodeError(CodeInternal, "internal error")
)

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

// WithDetail returns a copy carrying extra user-facing detail.
func (e *CodeError) WithDetail(detail string) *CodeError {
	c := e.clone()
	if c.Detail == "" {
		c.Detail = detail
	} else {
		c.Detail += ", " + detail
	}
	return c
}

// WrapMsg attaches detail and a stack in one step.
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	return errors.WithStack(e.WithDetail(toString(msg, kv)))
}

// Wrap records err as the detail of this code error, keeping the cause chain.
func (e *CodeError) Wrap(err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(e.WithDetail(err.Error()))
}

// Is matches by code so wrapped variants still compare equal.
func (e *CodeError) Is(target error) bool {
	t, ok := target.(*CodeError)
	return ok && t.Code == e.Code
}

// Unwrap walks a wrapped chain down to the innermost *CodeError, or nil.
func Unwrap(err error) *CodeError {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// CodeOf reports the taxonomy code of err, defaulting to CodeInternal.
func CodeOf(err error) int {
	if ce := Unwrap(err); ce != nil {
		return ce.Code
	}
	return CodeInternal
}

// Message reports the user-facing text of err. Non-taxonomy errors collapse
// to the generic internal message so internals never leak onto the wire.
func Message(err error) string {
	if ce := Unwrap(err); ce != nil {
		if ce.Detail != "" {
			return ce.Msg + ": " + ce.Detail
		}
		return ce.Msg
	}
	return ErrInternal.Msg
}

func toString(msg string, kv []any) string {
	if len(kv) == 0 {
		return msg
	}
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", kv[i], kv[i+1]))
	}
	return sb.String()
}
