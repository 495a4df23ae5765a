package models

import "fmt"

// MaxReportedErrors caps how many row errors are returned per batch.
const MaxReportedErrors = 10

// ValidationError describes one rejected row. It is returned to the caller
// but never persisted.
type ValidationError struct {
	Row     int               `json:"row"`
	Raw     map[string]string `json:"raw,omitempty"`
	Message string            `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// FileFormatError marks an upload rejected before parsing: unsupported
// extension, oversize file, or an unreadable header. Fatal for the request.
type FileFormatError struct {
	Filename string
	Reason   string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("unsupported file %q: %s", e.Filename, e.Reason)
}

// StorageUnavailableError marks the storage backend as unreachable. The
// whole request fails before any write is attempted.
type StorageUnavailableError struct {
	Backend string
	Err     error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Err }

// PartialPersistenceError reports that some validated records failed to
// persist. Non-fatal for the batch: already-persisted rows are retained and
// the final counts reflect what was actually written.
type PartialPersistenceError struct {
	Attempted int
	Persisted int
	Err       error
}

func (e *PartialPersistenceError) Error() string {
	return fmt.Sprintf("persisted %d of %d validated records: %v", e.Persisted, e.Attempted, e.Err)
}

func (e *PartialPersistenceError) Unwrap() error { return e.Err }
