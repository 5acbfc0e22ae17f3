package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code classifies a failure for retry and messaging decisions.
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeStorage      Code = "STORAGE_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodePayment      Code = "PAYMENT_ERROR"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Metadata describes how a code surfaces to the shopper.
type Metadata struct {
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:     false,
		PublicMessage: "please review the highlighted fields",
	},
	CodeUnauthorized: {
		Retryable:     false,
		PublicMessage: "please log in to continue",
	},
	CodeNotFound: {
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		Retryable:     false,
		PublicMessage: "this request conflicts with the current state",
	},
	CodeStorage: {
		Retryable:     true,
		PublicMessage: "could not access local storage",
	},
	CodeDependency: {
		Retryable:     true,
		PublicMessage: "service temporarily unavailable, please try again",
	},
	CodePayment: {
		Retryable:     true,
		PublicMessage: "payment could not be completed, please try again",
	},
	CodeInternal: {
		Retryable:     false,
		PublicMessage: "something went wrong",
	},
}

// MetadataFor resolves messaging metadata, defaulting to internal-error.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the coded error carried across the storefront core.
type Error struct {
	code    Code
	message string
	fields  map[string]string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Fields returns per-field validation detail, nil when none was attached.
func (e *Error) Fields() map[string]string {
	if e == nil {
		return nil
	}
	return e.fields
}

// WithFields attaches per-field validation detail for form surfaces.
func (e *Error) WithFields(fields map[string]string) *Error {
	if e == nil {
		return nil
	}
	e.fields = fields
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts a coded error from an error chain, nil when absent.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// UserMessage picks the text shown to the shopper: the coded error's own
// message when its code allows detail, else the code's public fallback.
func UserMessage(err error) string {
	typed := As(err)
	if typed == nil {
		return MetadataFor(CodeInternal).PublicMessage
	}
	if msg := typed.Message(); msg != "" {
		return msg
	}
	return MetadataFor(typed.Code()).PublicMessage
}
