// Copyright 2025 VRF Relay Worker Authors

package store

import "errors"

// ErrNotFound is returned when a requested nonce has no store record.
var ErrNotFound = errors.New("store: record not found")
