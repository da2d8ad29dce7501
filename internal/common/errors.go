// Package common defines shared sentinel errors used across critterdex
// components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorClosed   = errors.New("store is closed")
)
