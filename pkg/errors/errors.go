package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	// CodeParse marks payloads that could not be decoded into an event.
	CodeParse Code = "PARSE_ERROR"
	// CodeValidation marks events that decoded fine but carry defective data.
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeDependency marks failures of an external collaborator (store,
	// queue, notification channel).
	CodeDependency Code = "DEPENDENCY_ERROR"
	// CodeInternal marks unexpected failures inside the pipeline itself.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Metadata describes how the pipeline treats errors of a given code.
type Metadata struct {
	// Retryable means the message should be reported failed so the queue
	// redelivers it. Non-retryable codes are terminal classifications.
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeParse: {
		Retryable:     true,
		PublicMessage: "payload could not be parsed",
	},
	CodeValidation: {
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeDependency: {
		Retryable:     true,
		PublicMessage: "dependency unavailable",
	},
	CodeInternal: {
		Retryable:     true,
		PublicMessage: "internal error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
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

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
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

// IsRetryable reports whether the error should surface as a failed batch
// item. Unknown error types count as retryable internal failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := As(err); typed != nil {
		return MetadataFor(typed.Code()).Retryable
	}
	return true
}
