package models

import "errors"

// Fatal run errors. Each aborts a run before any file is processed.
var (
	// ErrInvalidSource is returned when the source is missing, not a directory, or holds no files
	ErrInvalidSource = errors.New("invalid source")
	// ErrDestinationUncreatable is returned when the destination root cannot be created
	ErrDestinationUncreatable = errors.New("destination uncreatable")
	// ErrDestinationMissing is returned by verify-only runs whose destination root does not exist
	ErrDestinationMissing = errors.New("destination missing")
)
