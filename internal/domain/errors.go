package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNotInitialized  = errors.New("market not initialized on chain")
	ErrAlreadyRedeemed = errors.New("item already redeemed")
	ErrNotRedeemable   = errors.New("item not redeemable")
	ErrMarketExpired   = errors.New("market expired")
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrLockHeld        = errors.New("lock already held")
)
