// Package errors defines the engine's error taxonomy: a fixed set of codes,
// each carrying an actionable hint, so that every user-visible failure names
// what happened, the smallest relevant context, and the next action.
package errors

import "fmt"

// Code identifies one of the fixed error conditions the engine can raise.
type Code string

const (
	// Workspace / branch.
	NotInitialized    Code = "NotInitialized"
	AlreadyInitialized Code = "AlreadyInitialized"
	InvalidBranchName Code = "InvalidBranchName"
	WorkspaceNotFound Code = "WorkspaceNotFound"

	// Timeline.
	RevisionNotFound  Code = "RevisionNotFound"
	AmbiguousRevision Code = "AmbiguousRevision"
	TimelineCorrupt   Code = "TimelineCorrupt"

	// Staging.
	DuplicatePending      Code = "DuplicatePending"
	SourceNotFound        Code = "SourceNotFound"
	UnsupportedSourceKind Code = "UnsupportedSourceKind"

	// Commit / reindex.
	EmbeddingProviderUnavailable Code = "EmbeddingProviderUnavailable"
	EmbeddingModelMismatch       Code = "EmbeddingModelMismatch"
	EmbeddingDimensionMismatch   Code = "EmbeddingDimensionMismatch"
	NothingToCommit              Code = "NothingToCommit"
	SourceReadFailed             Code = "SourceReadFailed"
	SourceTooLarge               Code = "SourceTooLarge"
	NotReindexed                 Code = "NotReindexed"

	// Retrieval.
	BaseNotIndexed          Code = "BaseNotIndexed"
	BaseEmbeddingIncompatible Code = "BaseEmbeddingIncompatible"
	RerankerUnavailable     Code = "RerankerUnavailable"

	// Memory.
	MissingPruningPolicy Code = "MissingPruningPolicy"
	MemoryEntryInvalid   Code = "MemoryEntryInvalid"

	// IO / backend.
	IoFailed           Code = "IoFailed"
	BackendFailed      Code = "BackendFailed"
	SerializationFailed Code = "SerializationFailed"
)

// GikError is the engine's structured error type: a code, a human-readable
// message, optional wrapped cause, and a next-action hint.
type GikError struct {
	Code    Code
	Message string
	Cause   error
	NextAction string
}

func (e *GikError) Error() string {
	if e.NextAction != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.NextAction)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *GikError) Unwrap() error {
	return e.Cause
}

// New builds a GikError with no cause and no next-action hint.
func New(code Code, message string) *GikError {
	return &GikError{Code: code, Message: message}
}

// Newf builds a GikError with a formatted message.
func Newf(code Code, format string, args ...any) *GikError {
	return &GikError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new GikError.
func Wrap(code Code, cause error, message string) *GikError {
	return &GikError{Code: code, Message: message, Cause: cause}
}

// WithNextAction returns a copy of e with NextAction set, for fluent
// construction at the call site: errors.New(...).WithNextAction("run reindex").
func (e *GikError) WithNextAction(action string) *GikError {
	clone := *e
	clone.NextAction = action
	return &clone
}

// Is reports whether err is a *GikError carrying the given code.
func Is(err error, code Code) bool {
	var ge *GikError
	for err != nil {
		if g, ok := err.(*GikError); ok {
			ge = g
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ge != nil && ge.Code == code
}

// CodeOf returns the code of err if it is a *GikError, or "" otherwise.
func CodeOf(err error) Code {
	if ge, ok := err.(*GikError); ok {
		return ge.Code
	}
	return ""
}
