package types

import "errors"

// Sentinel errors for the taxonomy of kinds (not concrete types) described
// by the error handling design: configuration, connect, timeout, extraction,
// persistence, invariant violation, notification and cancellation failures.
// Callers branch on kind with errors.Is, never on message text.
var (
	// ErrConfiguration is fatal at startup: missing connection string,
	// missing encryption key, invalid scheduler settings.
	ErrConfiguration = errors.New("configuration error")

	// ErrConnect means the extractor could not open a transport to a
	// target. Recorded per target; never fatal to the overall scan.
	ErrConnect = errors.New("connect error")

	// ErrTimeout means a per-target deadline elapsed before connect,
	// extract and write completed.
	ErrTimeout = errors.New("timeout")

	// ErrExtraction means the target server returned an error while
	// reading its module catalog. Recorded per target.
	ErrExtraction = errors.New("extraction error")

	// ErrPersistence means a repository write failed. Fatal to the scan
	// only when raised while creating or updating the ScanLog itself;
	// a per-target persistence failure is recorded and the scan
	// continues with the next target.
	ErrPersistence = errors.New("persistence error")

	// ErrInvariant means an internal invariant was violated (snapshot and
	// definition count mismatch, unknown tenant, etc). Fatal to the
	// affected scan.
	ErrInvariant = errors.New("invariant violation")

	// ErrNotification is logged and swallowed; it must never fail a scan.
	ErrNotification = errors.New("notification error")

	// ErrCancelled marks a scan that was aborted by cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrNotFound is returned by repository lookups that found no row.
	ErrNotFound = errors.New("not found")
)
