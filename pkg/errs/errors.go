// Package errs provides the structured error taxonomy shared by every
// storage-engine component: the hash index, the B+ tree, the buffer
// pool, and the log manager all report failures as *DBError values
// instead of bare errors.New, so callers can switch on Category.
package errs

import (
	"fmt"
	"runtime"
	"strings"
)

// Category classifies an error by how the caller should react to it.
type Category int

const (
	// OutOfMemory: the buffer pool could not allocate a page. Fatal to
	// the current operation.
	OutOfMemory Category = iota

	// PagePinned: an attempt to delete a still-pinned page.
	PagePinned

	// IndexOutOfRange: a programming error in per-page array operations.
	IndexOutOfRange

	// DuplicateKey: insert found an existing key. Recovered locally.
	DuplicateKey

	// NotFound: remove/find did not locate the key. Recovered locally.
	NotFound

	// TransactionAborted: lock rejected by Wait-Die or a prior abort.
	TransactionAborted

	// TwoPLViolation: a lock request arrived while the transaction was
	// SHRINKING.
	TwoPLViolation
)

func (c Category) String() string {
	switch c {
	case OutOfMemory:
		return "OutOfMemory"
	case PagePinned:
		return "PagePinned"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	case DuplicateKey:
		return "DuplicateKey"
	case NotFound:
		return "NotFound"
	case TransactionAborted:
		return "TransactionAborted"
	case TwoPLViolation:
		return "TwoPLViolation"
	default:
		return "Unknown"
	}
}

// DBError is a structured error carrying enough context to diagnose a
// storage-engine failure without re-deriving it from a bare string.
type DBError struct {
	Code      string
	Category  Category
	Message   string
	Detail    string
	Operation string
	Component string
	Cause     error
	Stack     []uintptr
}

// New creates a DBError with the given category, code, and message.
func New(category Category, code, message string) *DBError {
	return &DBError{
		Code:     code,
		Category: category,
		Message:  message,
		Stack:    captureStack(),
	}
}

// Wrap attaches operation/component context to err. If err is already a
// *DBError its existing fields are preserved and only blanks are filled.
func Wrap(err error, code, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	if dbErr, ok := err.(*DBError); ok {
		if dbErr.Operation == "" {
			dbErr.Operation = operation
		}
		if dbErr.Component == "" {
			dbErr.Component = component
		}
		return dbErr
	}

	return &DBError{
		Code:      code,
		Category:  IndexOutOfRange,
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the error interface.
func (e *DBError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Detail != "" {
		b.WriteString(fmt.Sprintf(": %s", e.Detail))
	}

	if e.Operation != "" {
		b.WriteString(fmt.Sprintf(" (operation: %s", e.Operation))
		if e.Component != "" {
			b.WriteString(fmt.Sprintf(", component: %s", e.Component))
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(" caused by: %v", e.Cause))
	}

	return b.String()
}

// Unwrap enables errors.Is / errors.As traversal to the wrapped cause.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two DBErrors with the same Code.
func (e *DBError) Is(target error) bool {
	other, ok := target.(*DBError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// FormatStack renders the captured call stack for debugging.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		b.WriteString(fmt.Sprintf("  %s\n    %s:%d\n", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}

	return b.String()
}

// Sentinel-style constructors for the exact message strings the index
// components rely on: these strings are part of the debuggable
// contract. Each constructor also sets a Category and a Code, which is
// what callers in this module branch on.

func ErrOutOfMemory(operation, component string) *DBError {
	e := New(OutOfMemory, "OUT_OF_MEMORY", "out of memory")
	e.Operation, e.Component = operation, component
	return e
}

func ErrAllPagesPinned(operation, component string) *DBError {
	e := New(OutOfMemory, "ALL_PAGES_PINNED", "all page are pinned while printing")
	e.Operation, e.Component = operation, component
	return e
}

func ErrOutOfIndexRange(operation, component string) *DBError {
	e := New(IndexOutOfRange, "OUT_OF_INDEX_RANGE", "out of index")
	e.Operation, e.Component = operation, component
	return e
}

func ErrOldValueNotExists(operation, component string) *DBError {
	e := New(NotFound, "OLD_VALUE_NOT_EXISTS", "old value not exists")
	e.Operation, e.Component = operation, component
	return e
}

func ErrPageStillInUse(operation, component string) *DBError {
	e := New(PagePinned, "PAGE_STILL_IN_USE", "Page still in use.")
	e.Operation, e.Component = operation, component
	return e
}
