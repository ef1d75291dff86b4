package callback

import "errors"

// ErrSignatureMismatch is reported when a callback's signature does not match
// its payload under the merchant secret.
var ErrSignatureMismatch = errors.New("callback signature mismatch")
