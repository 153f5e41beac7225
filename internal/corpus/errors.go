package corpus

import "errors"

var (
	// ErrAccessDenied indicates a path resolves outside the corpus root.
	ErrAccessDenied = errors.New("invalid file path - access denied")

	// ErrStopWalk stops a Scanner walk early without reporting an error.
	ErrStopWalk = errors.New("stop walk")
)
