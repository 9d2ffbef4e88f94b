package lock

import "errors"

// ErrLockTimeout is returned when a user's lock cannot be acquired before
// the timeout or the context expires.
var ErrLockTimeout = errors.New("user lock acquisition timeout")
