package tinyfs

import "fmt"

// Code is one of the fixed, stable error values a tinyfs operation can
// return. The numeric values are part of the external contract: callers
// that only care about the legacy integer API can compare against these
// directly instead of using errors.Is.
type Code int

const (
	SUCCESS         Code = 0
	ErrDiskSize     Code = -1
	ErrOpen         Code = -2
	ErrCreate       Code = -3
	ErrClosed       Code = -4
	ErrInvalidDisk  Code = -5
	ErrInvalidBNum  Code = -6
	ErrFailedCreate Code = -7
	ErrMountedFS    Code = -8
	ErrMountedNone  Code = -9
	ErrInvalidFD    Code = -10
	ErrNoFreeBlocks Code = -11
	ErrFileSize     Code = -12
	ErrInvalidFS    Code = -13
	ErrInvalidSeek  Code = -14
	ErrInvalidOffset Code = -15
	ErrFileTooLarge Code = -16
	ErrNoFD         Code = -17
	ErrFileNotFound Code = -18
	ErrInvalidPerms Code = -19
)

var codeMessages = map[Code]string{
	SUCCESS:          "success",
	ErrDiskSize:      "invalid disk size",
	ErrOpen:          "failed to open existing disk image",
	ErrCreate:        "failed to create disk image",
	ErrClosed:        "disk handle is closed",
	ErrInvalidDisk:   "invalid disk handle",
	ErrInvalidBNum:   "block number out of range",
	ErrFailedCreate:  "failed to create file system",
	ErrMountedFS:     "a file system is already mounted",
	ErrMountedNone:   "no file system is mounted",
	ErrInvalidFD:     "invalid file descriptor",
	ErrNoFreeBlocks:  "no free blocks available",
	ErrFileSize:      "invalid file size",
	ErrInvalidFS:      "not a valid file system image",
	ErrInvalidSeek:   "seek offset past end of file",
	ErrInvalidOffset: "offset past end of file",
	ErrFileTooLarge:  "file exceeds maximum block count",
	ErrNoFD:          "no open file descriptor for name",
	ErrFileNotFound:  "file not found",
	ErrInvalidPerms:  "operation not permitted on read-only file",
}

// Error implements the `error` interface for bare codes so a Code can be
// returned and compared directly without always wrapping it in an FSError.
func (c Code) Error() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return fmt.Sprintf("tinyfs error code %d", int(c))
}

// WithMessage creates an FSError carrying this code with a custom message,
// leaving the code itself as the comparable sentinel for errors.Is.
func (c Code) WithMessage(message string) *FSError {
	return &FSError{code: c, message: message}
}

// Wrap creates an FSError carrying this code whose message includes the
// wrapped error's text, and whose Unwrap() returns err.
func (c Code) Wrap(err error) *FSError {
	return &FSError{
		code:    c,
		message: fmt.Sprintf("%s: %s", c.Error(), err.Error()),
		wrapped: err,
	}
}

// FSError is the concrete error type returned by every tinyfs operation
// that fails. It always carries one of the Code constants above.
type FSError struct {
	code    Code
	message string
	wrapped error
}

// NewFSError creates an FSError with the code's default message.
func NewFSError(code Code) *FSError {
	return &FSError{code: code, message: code.Error()}
}

func (e *FSError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.code.Error()
}

// Code returns the stable integer code this error carries.
func (e *FSError) Code() Code {
	return e.code
}

// Is lets errors.Is(err, tinyfs.ErrInvalidFD) work against a bare Code even
// when err is an *FSError wrapping it.
func (e *FSError) Is(target error) bool {
	if code, ok := target.(Code); ok {
		return e.code == code
	}
	return false
}

func (e *FSError) Unwrap() error {
	return e.wrapped
}

// ErrorCode extracts the legacy signed-integer return value for any error
// produced by this package, or SUCCESS if err is nil. Errors from outside
// the package that don't carry a Code translate to a generic negative
// value so callers can still tell success from failure.
func ErrorCode(err error) int {
	if err == nil {
		return int(SUCCESS)
	}
	if fsErr, ok := err.(*FSError); ok {
		return int(fsErr.code)
	}
	if code, ok := err.(Code); ok {
		return int(code)
	}
	return int(ErrInvalidDisk)
}
