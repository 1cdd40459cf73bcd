package tycho

import "github.com/tychodb/tycho/internal/terr"

// Kind discriminates the error taxonomy described for the engine: each
// failure mode the Connection Supervisor and the Document/Blob/Index
// engines can raise maps to exactly one Kind. It is a type alias for
// internal/terr.Kind, the package that actually defines the taxonomy so
// that package, the Type Registry, the Path Compiler, and the Connection
// Supervisor can all raise these errors without importing this root
// package back (see internal/terr's doc comment).
type Kind = terr.Kind

const (
	KindNotConnected      = terr.KindNotConnected
	KindNotRegistered     = terr.KindNotRegistered
	KindMissingIdSelector = terr.KindMissingIdSelector
	KindInvalidPath       = terr.KindInvalidPath
	KindAmbiguousMatch    = terr.KindAmbiguousMatch
	KindJsonUnsupported   = terr.KindJsonUnsupported
	KindWriteFailed       = terr.KindWriteFailed
	KindReadFailed        = terr.KindReadFailed
	KindDeleteFailed      = terr.KindDeleteFailed
	KindIndexFailed       = terr.KindIndexFailed
	KindBlobFailed        = terr.KindBlobFailed
	KindCancelled         = terr.KindCancelled
)

// TychoError is the single error type raised by every package in this
// module. See internal/terr.TychoError.
type TychoError = terr.TychoError

// NotConnected reports that an operation was invoked before connect.
func NotConnected(msg string) error { return terr.NotConnected(msg) }

// NotRegistered reports an unknown type under strict-mode registration.
func NotRegistered(typeName string) error { return terr.NotRegistered(typeName) }

// MissingIdSelector reports that convention-based registration produced no
// id-selector and a caller relied on one being present.
func MissingIdSelector(typeName string) error { return terr.MissingIdSelector(typeName) }

// InvalidPath reports that an accessor expression was not a chain of
// member accesses that resolves to a JSON path.
func InvalidPath(expr string) error { return terr.InvalidPath(expr) }

// AmbiguousMatch reports that read_by_filter found more than one row.
func AmbiguousMatch(count int) error { return terr.AmbiguousMatch(count) }

// JsonUnsupported reports that the storage engine lacks JSON support.
func JsonUnsupported(detail string) error { return terr.JsonUnsupported(detail) }

// WriteFailed wraps a storage-engine failure during a write.
func WriteFailed(cause error) error { return terr.WriteFailed(cause) }

// ReadFailed wraps a storage-engine failure during a read.
func ReadFailed(cause error) error { return terr.ReadFailed(cause) }

// DeleteFailed wraps a storage-engine failure during a delete.
func DeleteFailed(cause error) error { return terr.DeleteFailed(cause) }

// IndexFailed wraps a storage-engine failure while creating an index.
func IndexFailed(cause error) error { return terr.IndexFailed(cause) }

// BlobFailed wraps a storage-engine failure during blob I/O.
func BlobFailed(cause error) error { return terr.BlobFailed(cause) }

// Cancelled reports that an operation was aborted via its context.
func Cancelled(cause error) error { return terr.Cancelled(cause) }

// Is reports whether err has the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool { return terr.Is(err, kind) }

// IsNotConnected reports whether err is a TychoError of KindNotConnected.
func IsNotConnected(err error) bool { return Is(err, KindNotConnected) }

// IsNotRegistered reports whether err is a TychoError of KindNotRegistered.
func IsNotRegistered(err error) bool { return Is(err, KindNotRegistered) }

// IsMissingIdSelector reports whether err is a TychoError of KindMissingIdSelector.
func IsMissingIdSelector(err error) bool { return Is(err, KindMissingIdSelector) }

// IsInvalidPath reports whether err is a TychoError of KindInvalidPath.
func IsInvalidPath(err error) bool { return Is(err, KindInvalidPath) }

// IsAmbiguousMatch reports whether err is a TychoError of KindAmbiguousMatch.
func IsAmbiguousMatch(err error) bool { return Is(err, KindAmbiguousMatch) }

// IsJsonUnsupported reports whether err is a TychoError of KindJsonUnsupported.
func IsJsonUnsupported(err error) bool { return Is(err, KindJsonUnsupported) }

// IsWriteFailed reports whether err is a TychoError of KindWriteFailed.
func IsWriteFailed(err error) bool { return Is(err, KindWriteFailed) }

// IsReadFailed reports whether err is a TychoError of KindReadFailed.
func IsReadFailed(err error) bool { return Is(err, KindReadFailed) }

// IsDeleteFailed reports whether err is a TychoError of KindDeleteFailed.
func IsDeleteFailed(err error) bool { return Is(err, KindDeleteFailed) }

// IsIndexFailed reports whether err is a TychoError of KindIndexFailed.
func IsIndexFailed(err error) bool { return Is(err, KindIndexFailed) }

// IsBlobFailed reports whether err is a TychoError of KindBlobFailed.
func IsBlobFailed(err error) bool { return Is(err, KindBlobFailed) }

// IsCancelled reports whether err is a TychoError of KindCancelled.
func IsCancelled(err error) bool { return Is(err, KindCancelled) }
