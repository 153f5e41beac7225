package mcp

import "errors"

// ErrInvalidInput is returned for tool arguments that fail validation.
var ErrInvalidInput = errors.New("invalid input")
