package metadata

import "errors"

var (
	ErrProviderUnavailable = errors.New("metadata provider unavailable")
	ErrGenerationTimeout   = errors.New("metadata generation timeout")
	ErrInvalidResponse     = errors.New("metadata provider returned invalid response")
)
