package cart

import "errors"

// ErrNoCustomer is returned for guest orders, which have no cart to clear.
var ErrNoCustomer = errors.New("order has no customer cart")
