// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors. Callers match them with errors.Is; producers wrap them
// with context via fmt.Errorf("...: %w").
var (
	// Capture parsing errors
	ErrBadMagic        = errors.New("pcapbench: unrecognized capture magic")
	ErrTruncatedRecord = errors.New("pcapbench: truncated capture record")
	ErrInvalidRecord   = errors.New("pcapbench: invalid capture record length")

	// Compression probe errors
	ErrEmptyInput     = errors.New("pcapbench: empty input")
	ErrUnknownBackend = errors.New("pcapbench: unknown compression backend")

	// External codec errors
	ErrSubprocessFailed = errors.New("pcapbench: external codec failed")
	ErrMalformedReport  = errors.New("pcapbench: malformed external codec report")

	// Configuration errors
	ErrConfigInvalid = errors.New("pcapbench: invalid configuration")
)
