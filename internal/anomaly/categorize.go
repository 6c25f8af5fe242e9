package anomaly

import "net/http"

// Error categories used as the "category" label on bank_errors_total.
const (
	CategoryValidation    = "validation"
	CategoryAuthorization = "authorization"
	CategoryNotFound      = "not_found"
	CategoryRateLimit     = "rate_limit"
	CategoryServerError   = "server_error"
	CategoryUnknown       = "unknown"
)

// Categorize maps an HTTP status code to an error category. Codes outside
// the recognised bands — including 0, meaning the caller didn't supply one —
// map to CategoryUnknown.
func Categorize(statusCode int) string {
	switch {
	case statusCode == http.StatusBadRequest:
		return CategoryValidation
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return CategoryAuthorization
	case statusCode == http.StatusNotFound:
		return CategoryNotFound
	case statusCode == http.StatusTooManyRequests:
		return CategoryRateLimit
	case statusCode >= http.StatusInternalServerError:
		return CategoryServerError
	default:
		return CategoryUnknown
	}
}
