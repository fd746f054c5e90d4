package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrorTypeNotARepository          ErrorType = "NOT_A_REPOSITORY"
	ErrorTypeAlreadyInitialized      ErrorType = "ALREADY_INITIALIZED"
	ErrorTypeInvalidArgumentCount    ErrorType = "INVALID_ARGUMENT_COUNT"
	ErrorTypeUnknownCommand          ErrorType = "UNKNOWN_COMMAND"
	ErrorTypeFileNotFound            ErrorType = "FILE_NOT_FOUND"
	ErrorTypeObjectNotFound          ErrorType = "OBJECT_NOT_FOUND"
	ErrorTypeAmbiguousOrNotFound     ErrorType = "AMBIGUOUS_OR_NOT_FOUND"
	ErrorTypeUnknownBranch           ErrorType = "UNKNOWN_BRANCH"
	ErrorTypeBranchAlreadyExists     ErrorType = "BRANCH_ALREADY_EXISTS"
	ErrorTypeInvalidBranchName       ErrorType = "INVALID_BRANCH_NAME"
	ErrorTypeSelfReferenceGuard      ErrorType = "SELF_REFERENCE_GUARD"
	ErrorTypeWouldOverwriteUntracked ErrorType = "WOULD_OVERWRITE_UNTRACKED"
	ErrorTypeUncommittedChanges      ErrorType = "UNCOMMITTED_CHANGES"
	ErrorTypeNothingToCommit         ErrorType = "NOTHING_TO_COMMIT"
	ErrorTypeEmptyMessage            ErrorType = "EMPTY_MESSAGE"
	ErrorTypeNoReasonToRemove        ErrorType = "NO_REASON_TO_REMOVE"
	ErrorTypeMergeConflict           ErrorType = "MERGE_CONFLICT"
	ErrorTypeStorageIOFailure        ErrorType = "STORAGE_IO_FAILURE"
)

// Sentinels for errors.Is checks. Only the Type is compared.
var (
	ErrNotARepository          = &Error{Type: ErrorTypeNotARepository}
	ErrAlreadyInitialized      = &Error{Type: ErrorTypeAlreadyInitialized}
	ErrInvalidArgumentCount    = &Error{Type: ErrorTypeInvalidArgumentCount}
	ErrUnknownCommand          = &Error{Type: ErrorTypeUnknownCommand}
	ErrFileNotFound            = &Error{Type: ErrorTypeFileNotFound}
	ErrObjectNotFound          = &Error{Type: ErrorTypeObjectNotFound}
	ErrAmbiguousOrNotFound     = &Error{Type: ErrorTypeAmbiguousOrNotFound}
	ErrUnknownBranch           = &Error{Type: ErrorTypeUnknownBranch}
	ErrBranchAlreadyExists     = &Error{Type: ErrorTypeBranchAlreadyExists}
	ErrInvalidBranchName       = &Error{Type: ErrorTypeInvalidBranchName}
	ErrSelfReferenceGuard      = &Error{Type: ErrorTypeSelfReferenceGuard}
	ErrWouldOverwriteUntracked = &Error{Type: ErrorTypeWouldOverwriteUntracked}
	ErrUncommittedChanges      = &Error{Type: ErrorTypeUncommittedChanges}
	ErrNothingToCommit         = &Error{Type: ErrorTypeNothingToCommit}
	ErrEmptyMessage            = &Error{Type: ErrorTypeEmptyMessage}
	ErrNoReasonToRemove        = &Error{Type: ErrorTypeNoReasonToRemove}
	ErrMergeConflict           = &Error{Type: ErrorTypeMergeConflict}
	ErrStorageIOFailure        = &Error{Type: ErrorTypeStorageIOFailure}
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Type)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Type, so the sentinels above work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// TypeOf returns the type of the first *Error in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

func NotARepository() *Error {
	return New(ErrorTypeNotARepository, "Not in an initialized twig directory.")
}

func AlreadyInitialized(root string) *Error {
	return &Error{
		Type:    ErrorTypeAlreadyInitialized,
		Message: "A twig version-control system already exists in the current directory.",
		Details: root,
	}
}

func InvalidArgumentCount(command string, min, max, got int) *Error {
	return &Error{
		Type: ErrorTypeInvalidArgumentCount,
		Message: fmt.Sprintf("%s can be used with at least %d argument(s) and at most %d argument(s). Number of argument(s) provided: %d",
			command, min, max, got),
	}
}

func UnknownCommand(name string) *Error {
	return &Error{
		Type:    ErrorTypeUnknownCommand,
		Message: "No command with that name exists.",
		Details: name,
	}
}

func FileNotFound(path string) *Error {
	return &Error{
		Type:    ErrorTypeFileNotFound,
		Message: "File does not exist.",
		Details: path,
	}
}

// FileNotInCommit is FileNotFound for a path missing from a commit's file map.
func FileNotInCommit(path string) *Error {
	return &Error{
		Type:    ErrorTypeFileNotFound,
		Message: "File does not exist in that commit.",
		Details: path,
	}
}

func ObjectNotFound(digest string) *Error {
	return &Error{
		Type:    ErrorTypeObjectNotFound,
		Message: fmt.Sprintf("Object %s does not exist.", digest),
		Details: digest,
	}
}

func AmbiguousOrNotFound(ref string, candidates []string) *Error {
	msg := fmt.Sprintf("No commit with id %s exists.", ref)
	if len(candidates) > 1 {
		msg = fmt.Sprintf("Commit id %s is ambiguous: %s", ref, strings.Join(candidates, ", "))
	}
	return &Error{
		Type:    ErrorTypeAmbiguousOrNotFound,
		Message: msg,
		Details: candidates,
	}
}

func UnknownBranch(name string) *Error {
	return &Error{
		Type:    ErrorTypeUnknownBranch,
		Message: fmt.Sprintf("Branch %s does not exist.", name),
		Details: name,
	}
}

func BranchAlreadyExists(name string) *Error {
	return &Error{
		Type:    ErrorTypeBranchAlreadyExists,
		Message: fmt.Sprintf("%s branch already exists!", name),
		Details: name,
	}
}

func InvalidBranchName(name, marker string) *Error {
	return &Error{
		Type:    ErrorTypeInvalidBranchName,
		Message: fmt.Sprintf("Branch name can not contain %q.", marker),
		Details: name,
	}
}

// SelfReferenceGuard is returned when an operation targets the current
// branch; action is the verb shown to the user ("checkout", "remove", ...).
func SelfReferenceGuard(action, name string) *Error {
	return &Error{
		Type:    ErrorTypeSelfReferenceGuard,
		Message: fmt.Sprintf("Cannot %s %s, since it is the current branch.", action, name),
		Details: name,
	}
}

func WouldOverwriteUntracked(paths []string) *Error {
	return &Error{
		Type:    ErrorTypeWouldOverwriteUntracked,
		Message: "There is an untracked file in the way; delete it, or add and commit it first.",
		Details: paths,
	}
}

func UncommittedChanges() *Error {
	return New(ErrorTypeUncommittedChanges, "Changes are pending to be committed. Please commit them first.")
}

func NothingToCommit() *Error {
	return New(ErrorTypeNothingToCommit, "No changes added to the commit.")
}

func EmptyMessage() *Error {
	return New(ErrorTypeEmptyMessage, "Please enter a commit message.")
}

func NoReasonToRemove(path string) *Error {
	return &Error{
		Type:    ErrorTypeNoReasonToRemove,
		Message: "No reason to remove the file.",
		Details: path,
	}
}

// MergeConflict describes one conflicted path. Merges still commit; the
// conflicts are reported, not returned.
func MergeConflict(path string) *Error {
	return &Error{
		Type:    ErrorTypeMergeConflict,
		Message: fmt.Sprintf("Encountered a merge conflict. Check the contents of %s to resolve.", path),
		Details: path,
	}
}

func StorageIOFailure(op string, err error) *Error {
	return &Error{
		Type:    ErrorTypeStorageIOFailure,
		Message: fmt.Sprintf("%s: %v", op, err),
		Err:     err,
	}
}
