package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别，对外稳定，写入响应体的 kind 字段
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnpublished  Kind = "unpublished_assessment"
	KindAttemptLimit Kind = "attempt_limit_exceeded"
	KindPermission   Kind = "permission_denied"
	KindPersistence  Kind = "persistence"
)

type Error struct {
	Kind     Kind
	Message  string
	Field    string // ValidationError 时指向出错字段
	Resource string // NotFoundError 时为 assessment / question / submission
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按 Kind 匹配；目标带 Resource 时还要求资源一致
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Resource == "" || t.Resource == e.Resource
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnpublished  = &Error{Kind: KindUnpublished}
	ErrAttemptLimit = &Error{Kind: KindAttemptLimit}
	ErrPermission   = &Error{Kind: KindPermission}
	ErrPersistence  = &Error{Kind: KindPersistence}
)

func Validation(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

func NotFound(resource string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Resource: resource,
		Message:  resource + " not found",
	}
}

func Unpublished(assessmentID string) *Error {
	return &Error{
		Kind:    KindUnpublished,
		Message: fmt.Sprintf("assessment %s is not published", assessmentID),
	}
}

func AttemptLimitExceeded(allowed int) *Error {
	return &Error{
		Kind:    KindAttemptLimit,
		Message: fmt.Sprintf("attempt limit exceeded (allowed %d)", allowed),
	}
}

func Permission(message string) *Error {
	return &Error{Kind: KindPermission, Message: message}
}

func Persistence(op string, err error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Message: "storage failure during " + op,
		Err:     err,
	}
}

// KindOf 返回错误链上第一个 *Error 的类别，非业务错误视为持久化错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}
