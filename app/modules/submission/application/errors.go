package submissionservice

import "errors"

// Domain errors for the submission service. These classify business
// failures; the gateway maps them to user-facing messages and never
// leaks them verbatim.
var (
	// ErrInvalidWallet indicates the submitted address does not match
	// the required 0x-prefixed 40-hex-digit format.
	ErrInvalidWallet = errors.New("invalid wallet address")

	// ErrTierNotPersistable indicates the store refused the tier.
	// Defensive; upstream validation makes this unreachable.
	ErrTierNotPersistable = errors.New("tier does not map to a sheet")
)
