package policy

import "errors"

// ErrResponseUnavailable accompanies a fallback Decision.
var ErrResponseUnavailable = errors.New("response unavailable")
