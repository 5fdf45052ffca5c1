package rag

import "fmt"

type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "invalid_request"
	KindEmbedding      ErrorKind = "embedding"
	KindRetrieval      ErrorKind = "retrieval"
	KindGeneration     ErrorKind = "generation"
)

// Error is a classified chat pipeline failure. Message is user facing.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

var (
	errEmptyMessage = newError(KindInvalidRequest, "메시지가 비어있습니다.", nil)
)
