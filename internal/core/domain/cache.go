package domain

import (
	"encoding/json"
	"time"

	"github.com/hashicorp/go-multierror"
)

// CacheEntry is the persisted record of one source file.
type CacheEntry struct {
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	TypeName  string    `json:"type_name,omitzero"`
	ObjectID  string    `json:"object_id,omitzero"`
	Digest    string    `json:"digest,omitzero"`
	CachedAt  time.Time `json:"cached_at,omitzero"`

	// Diagnostic holds the last failure seen for this path. It is never persisted.
	Diagnostic *Diagnostic `json:"-"`
}

// Updated reports whether a file with the given mtime is newer than the entry.
// An entry without a stored timestamp is always considered updated.
func (e *CacheEntry) Updated(mtime time.Time) bool {
	if e.Timestamp.IsZero() {
		return true
	}
	return mtime.After(e.Timestamp)
}

// ObjectRecord is the persisted form of a cacheable object.
type ObjectRecord struct {
	ID         string          `json:"id"`
	TypeName   string          `json:"type_name"`
	Name       string          `json:"name,omitzero"`
	EntryPath  string          `json:"entry_path"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// SyncResult tells whether a sync changed the store.
type SyncResult uint8

const (
	// Unchanged means the store was left as it was.
	Unchanged SyncResult = iota
	// Changed means an entry was created, refreshed or destroyed.
	Changed
)

func (r SyncResult) String() string {
	if r == Changed {
		return "changed"
	}
	return "unchanged"
}

// Diagnostic describes a per-entry failure.
type Diagnostic struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"message"`

	err error
}

// NewDiagnostic classifies err for the given path.
func NewDiagnostic(path string, err error) *Diagnostic {
	return &Diagnostic{
		Path:    path,
		Kind:    KindOf(err),
		Message: err.Error(),
		err:     err,
	}
}

func (d *Diagnostic) Error() string {
	return d.Path + ": " + d.Kind + ": " + d.Message
}

// Unwrap returns the classified error.
func (d *Diagnostic) Unwrap() error {
	return d.err
}

// SyncItem is the outcome of syncing one path.
type SyncItem struct {
	Path       string      `json:"path"`
	Result     SyncResult  `json:"result"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

// SyncReport collects the outcome of a batch sync, ordered by path.
type SyncReport struct {
	Items []SyncItem `json:"items"`
}

// Counts returns the number of changed, unchanged and failed items.
// A failed item is counted only as failed.
func (r *SyncReport) Counts() (changed, unchanged, failed int) {
	for _, item := range r.Items {
		switch {
		case item.Diagnostic != nil:
			failed++
		case item.Result == Changed:
			changed++
		default:
			unchanged++
		}
	}
	return changed, unchanged, failed
}

// Err aggregates every per-entry diagnostic, or returns nil when none failed.
func (r *SyncReport) Err() error {
	var result *multierror.Error
	for _, item := range r.Items {
		if item.Diagnostic != nil {
			result = multierror.Append(result, item.Diagnostic)
		}
	}
	return result.ErrorOrNil()
}
