package mission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid/v5"
)

// Code is a stable machine-readable error identifier for the transport layer.
type Code string

const (
	CodeMissionNotFound          Code = "mission_not_found"
	CodeCategoryNotFound         Code = "category_not_found"
	CodeTemplateNotFound         Code = "template_not_found"
	CodeParentMissionNotFound    Code = "parent_mission_not_found"
	CodeInvalidParentMission     Code = "invalid_parent_mission"
	CodeInvalidTransition        Code = "invalid_transition"
	CodeMissionImmutable         Code = "mission_immutable"
	CodeTransactionsNotFound     Code = "transactions_not_found"
	CodeTransactionAlreadyLinked Code = "transaction_already_linked"
	CodeInvalidAmount            Code = "invalid_amount"
	CodeAlreadyAwarded           Code = "already_awarded"
	CodeInternal                 Code = "internal_error"
)

// Error is a domain error carrying a stable Code.
type Error struct {
	Code    Code
	Message string
	// MissingIDs is set for CodeTransactionsNotFound.
	MissingIDs []uuid.UUID
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Code, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

var (
	ErrMissionNotFound          = &Error{Code: CodeMissionNotFound}
	ErrCategoryNotFound         = &Error{Code: CodeCategoryNotFound}
	ErrTemplateNotFound         = &Error{Code: CodeTemplateNotFound}
	ErrParentMissionNotFound    = &Error{Code: CodeParentMissionNotFound}
	ErrInvalidParentMission     = &Error{Code: CodeInvalidParentMission}
	ErrInvalidTransition        = &Error{Code: CodeInvalidTransition}
	ErrMissionImmutable         = &Error{Code: CodeMissionImmutable}
	ErrTransactionsNotFound     = &Error{Code: CodeTransactionsNotFound}
	ErrTransactionAlreadyLinked = &Error{Code: CodeTransactionAlreadyLinked}
	ErrInvalidAmount            = &Error{Code: CodeInvalidAmount}
	ErrAlreadyAwarded           = &Error{Code: CodeAlreadyAwarded}
)

// TransactionsNotFound names every id that failed to resolve.
func TransactionsNotFound(missing []uuid.UUID) *Error {
	ids := make([]string, len(missing))
	for i, id := range missing {
		ids[i] = id.String()
	}
	return &Error{
		Code:       CodeTransactionsNotFound,
		Message:    "transactions not found: " + strings.Join(ids, ", "),
		MissingIDs: missing,
	}
}

// CodeOf extracts the Code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
