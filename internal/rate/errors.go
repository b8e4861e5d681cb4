package rate

import "errors"

// ErrRedisUnavailable wraps every backend failure returned by this package.
var ErrRedisUnavailable = errors.New("redis unavailable")
