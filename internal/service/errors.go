package service

import "errors"

// ErrNotFound covers both missing records and records owned by another user,
// so callers cannot probe for existence of other users' data.
var ErrNotFound = errors.New("not found")
