// Package docerr defines the failure taxonomy shared by every conversion.
package docerr

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindEntryMissing: a required package part is absent or unreadable.
	KindEntryMissing
	// KindMalformed: the document parsed but its root or body element is missing.
	KindMalformed
	// KindAllocation: a buffer or resource could not be obtained.
	KindAllocation
	// KindMarkdownParse: the Markdown parser rejected its input.
	KindMarkdownParse
	// KindOutputWrite: the destination could not be created or written.
	KindOutputWrite
)

func (k Kind) String() string {
	switch k {
	case KindEntryMissing:
		return "container entry missing"
	case KindMalformed:
		return "malformed document"
	case KindAllocation:
		return "allocation failure"
	case KindMarkdownParse:
		return "markdown parse failure"
	case KindOutputWrite:
		return "output write failure"
	}
	return "unknown failure"
}

// Error is a typed conversion failure.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "extract"
	Path string // part name or file path, if any
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// EntryMissing reports an absent package part.
func EntryMissing(op, name string, err error) error {
	return New(KindEntryMissing, op, name, err)
}

// Malformed reports a document without its required structure.
func Malformed(op, detail string) error {
	return New(KindMalformed, op, "", errors.New(detail))
}

// MarkdownParse reports a Markdown parser failure.
func MarkdownParse(op string, err error) error {
	return New(KindMarkdownParse, op, "", err)
}

// OutputWrite reports a destination that could not be written.
func OutputWrite(op, path string, err error) error {
	return New(KindOutputWrite, op, path, err)
}

// Allocation reports a resource that could not be obtained.
func Allocation(op string, err error) error {
	return New(KindAllocation, op, "", err)
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Wrapf annotates err while keeping its kind reachable through errors.As.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
