package feedsim

import "errors"

// Sentinel errors.
var (
	ErrSubscription = errors.New("subscription not received")
	ErrAPIKey       = errors.New("api key rejected")
)
