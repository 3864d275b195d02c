package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrParseFailure is returned when a source file cannot be parsed or its top level cannot be evaluated.
	ErrParseFailure = zerr.New("parse failure")

	// ErrIOFailure is returned when a source file cannot be read.
	ErrIOFailure = zerr.New("io failure")

	// ErrValidationFailure is returned when an object is rejected by domain validation.
	ErrValidationFailure = zerr.New("validation failure")

	// ErrEvaluationException is returned when a deferred block or capability raises during evaluation.
	ErrEvaluationException = zerr.New("evaluation exception")

	// ErrOverlayNotFound is returned when removing or looking up an overlay that is not registered.
	ErrOverlayNotFound = zerr.New("overlay not found")

	// ErrDuplicateOverlay is returned when an overlay name or root path is already registered.
	ErrDuplicateOverlay = zerr.New("overlay already registered")

	// ErrDependencyNotFound is returned when no overlay contributes a requested bundle.
	ErrDependencyNotFound = zerr.New("dependency not found")

	// ErrCapabilityNotFound is returned when no context or object defines a requested capability.
	ErrCapabilityNotFound = zerr.New("capability not defined")

	// ErrObjectNotFound is returned when a cached object id does not exist in the store.
	ErrObjectNotFound = zerr.New("object not found")

	// ErrUnknownType is returned when a persisted type name has no registered factory.
	ErrUnknownType = zerr.New("unknown cacheable type")

	// ErrBundleBlockMissing is returned when a bundle entry file defines no bundle block.
	ErrBundleBlockMissing = zerr.New("bundle entry file defines no bundle block")

	// ErrDefinitionMissing is returned when a source no longer defines a cached object's block.
	ErrDefinitionMissing = zerr.New("source no longer defines the object")

	// ErrInvalidAttribute is returned when a cacheable object carries an out-of-range attribute.
	ErrInvalidAttribute = zerr.New("invalid attribute value")

	// ErrIncludeCycle is returned when a file includes itself, directly or transitively.
	ErrIncludeCycle = zerr.New("include cycle")

	// ErrStoreCreateFailed is returned when the store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create store directory")

	// ErrStoreReadFailed is returned when the store cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read store")

	// ErrStoreUnmarshalFailed is returned when the store content cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal store")

	// ErrStoreMarshalFailed is returned when the store content cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal store")

	// ErrStoreWriteFailed is returned when the store cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write store")

	// ErrReadOnlyTransaction is returned when a read-only transaction attempts a write.
	ErrReadOnlyTransaction = zerr.New("write in read-only transaction")

	// ErrStoreQueryFailed is returned when a database statement fails.
	ErrStoreQueryFailed = zerr.New("store query failed")

	// ErrStoreConnectFailed is returned when the database cannot be reached.
	ErrStoreConnectFailed = zerr.New("failed to connect to store")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrRegistryReadFailed is returned when the overlay registry file cannot be read.
	ErrRegistryReadFailed = zerr.New("failed to read overlay registry")

	// ErrRegistryWriteFailed is returned when the overlay registry file cannot be written.
	ErrRegistryWriteFailed = zerr.New("failed to write overlay registry")

	// ErrInvalidOverlay is returned when an overlay has no name or its root is not a directory.
	ErrInvalidOverlay = zerr.New("invalid overlay")

	// ErrFileStatFailed is returned when stating a path fails.
	ErrFileStatFailed = zerr.New("failed to stat path")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrDiscoveryFailed is returned when scanning overlays for scripts fails.
	ErrDiscoveryFailed = zerr.New("failed to discover scripts")

	// ErrSyncFailed is returned when one or more entries failed during a sync pass.
	ErrSyncFailed = zerr.New("sync failed")
)

// kinds lists the failure taxonomy in the order KindOf checks it.
var kinds = []struct {
	err  error
	name string
}{
	{ErrParseFailure, "ParseFailure"},
	{ErrIOFailure, "IOFailure"},
	{ErrValidationFailure, "ValidationFailure"},
	{ErrEvaluationException, "EvaluationException"},
	{ErrOverlayNotFound, "OverlayNotFound"},
	{ErrDuplicateOverlay, "DuplicateOverlay"},
	{ErrDependencyNotFound, "DependencyNotFound"},
	{ErrCapabilityNotFound, "CapabilityNotFound"},
}

// kindError ties a cause to a taxonomy sentinel so errors.Is matches the sentinel
// while the cause keeps its own message.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.cause.Error()
}

func (e *kindError) Unwrap() error {
	return e.cause
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

// WrapKind wraps cause as a failure of the given kind.
// The result is a *zerr.Error, so callers attach metadata with zerr.With.
// errors.Is(result, kind) holds whether or not cause is nil.
func WrapKind(kind, cause error) error {
	if cause == nil {
		return zerr.Wrap(kind, "")
	}
	return zerr.Wrap(&kindError{kind: kind, cause: cause}, kind.Error())
}

// KindOf returns the taxonomy name of err, or "Error" when err belongs to no kind.
func KindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Error"
}
