package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrUpstreamServer    = errors.New("provider server error")
	ErrUnauthorized      = errors.New("provider rejected credentials")
	ErrMalformedResponse = errors.New("malformed provider response")
)
