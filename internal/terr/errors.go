// Package terr holds the TychoError taxonomy so every internal package
// (registry, path, conn, ...) can raise it without importing the root
// tycho package, which would create an import cycle since the root
// package itself depends on those internal packages. The root package's
// errors.go re-exports everything here under the public tycho.* names.
package terr

import (
	"errors"
	"fmt"
)

// Kind discriminates the error taxonomy described for the engine: each
// failure mode the Connection Supervisor and the Document/Blob/Index
// engines can raise maps to exactly one Kind.
type Kind uint8

const (
	// KindNotConnected is returned when an operation is invoked before connect.
	KindNotConnected Kind = iota + 1
	// KindNotRegistered is returned in strict mode for an unregistered type.
	KindNotRegistered
	// KindMissingIdSelector is returned when convention-based registration
	// produced no id-selector and a caller later relies on one.
	KindMissingIdSelector
	// KindInvalidPath is returned when an accessor expression is not a
	// chain of member accesses that resolves to a JSON path.
	KindInvalidPath
	// KindAmbiguousMatch is returned when read_by_filter matches more than one row.
	KindAmbiguousMatch
	// KindJsonUnsupported is returned when the storage engine lacks JSON support.
	KindJsonUnsupported
	// KindWriteFailed wraps a storage-engine failure during a write.
	KindWriteFailed
	// KindReadFailed wraps a storage-engine failure during a read.
	KindReadFailed
	// KindDeleteFailed wraps a storage-engine failure during a delete.
	KindDeleteFailed
	// KindIndexFailed wraps a storage-engine failure while creating an index.
	KindIndexFailed
	// KindBlobFailed wraps a storage-engine failure during blob I/O.
	KindBlobFailed
	// KindCancelled is returned when an operation was aborted via its context.
	KindCancelled
)

// String returns the taxonomy name used in Error() and log output.
func (k Kind) String() string {
	switch k {
	case KindNotConnected:
		return "NotConnected"
	case KindNotRegistered:
		return "NotRegistered"
	case KindMissingIdSelector:
		return "MissingIdSelector"
	case KindInvalidPath:
		return "InvalidPath"
	case KindAmbiguousMatch:
		return "AmbiguousMatch"
	case KindJsonUnsupported:
		return "JsonUnsupported"
	case KindWriteFailed:
		return "WriteFailed"
	case KindReadFailed:
		return "ReadFailed"
	case KindDeleteFailed:
		return "DeleteFailed"
	case KindIndexFailed:
		return "IndexFailed"
	case KindBlobFailed:
		return "BlobFailed"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// TychoError is the single error type raised by every package in this
// module. Kind discriminates which of the taxonomy's failure modes
// occurred; Msg carries a human-readable detail; Cause, when non-nil, is
// the wrapped error from the storage engine or context package.
type TychoError struct {
	Kind  Kind
	Msg   string
	Cause error
}

// Error returns the error string.
func (e *TychoError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tycho: %s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	if e.Msg != "" {
		return fmt.Sprintf("tycho: %s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("tycho: %s", e.Kind)
}

// Unwrap returns the wrapped cause, if any.
func (e *TychoError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *TychoError with the same Kind, so
// errors.Is(err, &TychoError{Kind: KindNotConnected}) works without the
// caller needing to know the message or cause.
func (e *TychoError) Is(target error) bool {
	var t *TychoError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newErr(kind Kind, msg string, cause error) *TychoError {
	return &TychoError{Kind: kind, Msg: msg, Cause: cause}
}

// NotConnected reports that an operation was invoked before connect.
func NotConnected(msg string) error {
	return newErr(KindNotConnected, msg, nil)
}

// NotRegistered reports an unknown type under strict-mode registration.
func NotRegistered(typeName string) error {
	return newErr(KindNotRegistered, fmt.Sprintf("type %q is not registered", typeName), nil)
}

// MissingIdSelector reports that convention-based registration produced no
// id-selector and a caller relied on one being present.
func MissingIdSelector(typeName string) error {
	return newErr(KindMissingIdSelector, fmt.Sprintf("type %q has no id-selector", typeName), nil)
}

// InvalidPath reports that an accessor expression was not a chain of
// member accesses that resolves to a JSON path.
func InvalidPath(expr string) error {
	return newErr(KindInvalidPath, fmt.Sprintf("not a member-access chain: %s", expr), nil)
}

// AmbiguousMatch reports that read_by_filter found more than one row.
func AmbiguousMatch(count int) error {
	return newErr(KindAmbiguousMatch, fmt.Sprintf("filter matched %d rows, expected at most 1", count), nil)
}

// JsonUnsupported reports that the storage engine lacks JSON support.
func JsonUnsupported(detail string) error {
	return newErr(KindJsonUnsupported, detail, nil)
}

// WriteFailed wraps a storage-engine failure during a write.
func WriteFailed(cause error) error {
	return newErr(KindWriteFailed, "write failed", cause)
}

// ReadFailed wraps a storage-engine failure during a read.
func ReadFailed(cause error) error {
	return newErr(KindReadFailed, "read failed", cause)
}

// DeleteFailed wraps a storage-engine failure during a delete.
func DeleteFailed(cause error) error {
	return newErr(KindDeleteFailed, "delete failed", cause)
}

// IndexFailed wraps a storage-engine failure while creating an index.
func IndexFailed(cause error) error {
	return newErr(KindIndexFailed, "index creation failed", cause)
}

// BlobFailed wraps a storage-engine failure during blob I/O.
func BlobFailed(cause error) error {
	return newErr(KindBlobFailed, "blob operation failed", cause)
}

// Cancelled reports that an operation was aborted via its context.
func Cancelled(cause error) error {
	return newErr(KindCancelled, "operation cancelled", cause)
}

// Is reports whether err has the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *TychoError
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
