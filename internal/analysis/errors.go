package analysis

import (
	"errors"
	"fmt"
	"os"
)

// Error kinds recorded with failed outcomes.
const (
	KindMissingFile = "missing_file"
	KindUnsupported = "unsupported"
	KindTool        = "tool"
	KindDecode      = "decode"
)

// ErrUnknownKind is returned by New for an unregistered analysis kind.
var ErrUnknownKind = errors.New("unknown analysis kind")

// Error is a classified analysis failure.
type Error struct {
	Kind   string
	Op     string
	Path   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorKind implements library.ErrorClassifier.
func (e *Error) ErrorKind() string { return e.Kind }

func newError(kind, op, path, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Detail: detail, Err: err}
}

// checkFile reports a classified error when path is missing or not a regular file.
func checkFile(op, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newError(KindMissingFile, op, path, "file not found", nil)
		}
		return newError(KindMissingFile, op, path, "", err)
	}
	if !info.Mode().IsRegular() {
		return newError(KindUnsupported, op, path, fmt.Sprintf("not a regular file (%s)", info.Mode().Type()), nil)
	}
	return nil
}
