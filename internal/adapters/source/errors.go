package source

import "errors"

// Sentinel errors for event sources.
var (
	ErrMissingCredentials = errors.New("datadog api and application keys must be provided via config or DD_API_KEY/DD_APP_KEY")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	ErrUnknownSource      = errors.New("unknown source type")
	ErrDecode             = errors.New("decode events")
)
