package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrLoginExpired     = fmt.Errorf("login QR code expired")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrAborted          = fmt.Errorf("aborted by user")

	// Gateway errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrMalformedResponse  = fmt.Errorf("malformed gateway response")
	ErrRateLimited        = fmt.Errorf("rate limited by gateway")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Catalog errors
	ErrCatalogNotFound = fmt.Errorf("catalog file not found")
	ErrInvalidCatalog  = fmt.Errorf("invalid catalog file")
	ErrEmptyCatalog    = fmt.Errorf("catalog contains no songs")

	// History errors
	ErrNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotInteractive  = fmt.Errorf("input required but stdin is not a terminal")
)
