package backup

// CopyStatus is the outcome of a single file copy attempt. The set is closed;
// switches over it handle every value explicitly.
type CopyStatus string

const (
	StatusCopied  CopyStatus = "COPIED"
	StatusSkipped CopyStatus = "SKIPPED"
	StatusFailed  CopyStatus = "FAILED"
)
