package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrRateLimited          = errors.New("rate limited")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrBadRequest           = errors.New("bad request")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	ErrNoMarkets            = errors.New("no markets")
	ErrLockHeld             = errors.New("lock held")
)
