package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for conversation operations.
type ErrorCode string

const (
	// ErrCodeSessionNotFound indicates the session id is unknown.
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrCodeSessionConflict indicates a client-supplied session id already exists.
	ErrCodeSessionConflict ErrorCode = "SESSION_CONFLICT"
	// ErrCodeSessionBusy indicates another turn for the same session is in flight.
	ErrCodeSessionBusy ErrorCode = "SESSION_BUSY"
	// ErrCodeTranscriptionFailed indicates speech-to-text failed or produced nothing.
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeReplyGenerationFailed indicates the language model call failed or timed out.
	ErrCodeReplyGenerationFailed ErrorCode = "REPLY_GENERATION_FAILED"
	// ErrCodeSynthesisFailed indicates text-to-speech failed; the reply text is still usable.
	ErrCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"
	// ErrCodeSummaryGenerationFailed indicates the summary model call failed.
	ErrCodeSummaryGenerationFailed ErrorCode = "SUMMARY_GENERATION_FAILED"
	// ErrCodeInvalidInput indicates invalid request input (empty audio, unknown mode, ...).
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeStoreFailed indicates a durable-store failure; fatal for the request.
	ErrCodeStoreFailed ErrorCode = "STORE_FAILED"
)

// ConversationError represents a structured error for conversation operations.
type ConversationError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConversationError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *ConversationError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for the conversation error taxonomy.

// SessionNotFound creates a session not found error.
func SessionNotFound(sessionID string) *ConversationError {
	return &ConversationError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("session not found: %s", sessionID),
	}
}

// SessionConflict creates a session conflict error.
func SessionConflict(sessionID string) *ConversationError {
	return &ConversationError{
		Code:    ErrCodeSessionConflict,
		Message: fmt.Sprintf("session already exists: %s", sessionID),
	}
}

// SessionBusy creates a session busy error.
func SessionBusy(sessionID string) *ConversationError {
	return &ConversationError{
		Code:    ErrCodeSessionBusy,
		Message: fmt.Sprintf("a turn is already in flight for session: %s", sessionID),
	}
}

// TranscriptionFailed creates a transcription failed error.
func TranscriptionFailed(msg string, cause error) *ConversationError {
	return &ConversationError{Code: ErrCodeTranscriptionFailed, Message: msg, Cause: cause}
}

// ReplyGenerationFailed creates a reply generation failed error.
func ReplyGenerationFailed(msg string, cause error) *ConversationError {
	return &ConversationError{Code: ErrCodeReplyGenerationFailed, Message: msg, Cause: cause}
}

// SynthesisFailed creates a synthesis failed error.
func SynthesisFailed(msg string, cause error) *ConversationError {
	return &ConversationError{Code: ErrCodeSynthesisFailed, Message: msg, Cause: cause}
}

// SummaryGenerationFailed creates a summary generation failed error.
func SummaryGenerationFailed(msg string, cause error) *ConversationError {
	return &ConversationError{Code: ErrCodeSummaryGenerationFailed, Message: msg, Cause: cause}
}

// InvalidInput creates an invalid input error.
func InvalidInput(msg string) *ConversationError {
	return &ConversationError{Code: ErrCodeInvalidInput, Message: msg}
}

// StoreFailed wraps a durable-store failure.
func StoreFailed(msg string, cause error) *ConversationError {
	return &ConversationError{Code: ErrCodeStoreFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *ConversationError {
	return &ConversationError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error carries a specific code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var convErr *ConversationError
	if errors.As(err, &convErr) {
		return convErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a ConversationError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var convErr *ConversationError
	if errors.As(err, &convErr) {
		return convErr.Code
	}
	return defaultCode
}
