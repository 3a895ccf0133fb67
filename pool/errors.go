package pool

import "errors"

// ErrPoolClosed is returned by every Borrow after Close, including borrowers
// that were parked when the pool was closed.
var ErrPoolClosed = errors.New("pool: closed")
