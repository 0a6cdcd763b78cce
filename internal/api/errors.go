package api

import "fmt"

// errorPayload is the JSON body the App Store Server API returns on failure.
type errorPayload struct {
	ErrorCode    int64  `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Well-known App Store Server API error codes. The full catalogue is large;
// these are the ones callers commonly branch on.
const (
	ErrorCodeGeneralBadRequest               int64 = 4000000
	ErrorCodeInvalidAppIdentifier            int64 = 4000002
	ErrorCodeInvalidRequestRevision          int64 = 4000005
	ErrorCodeInvalidTransactionID            int64 = 4000006
	ErrorCodeSubscriptionExtensionIneligible int64 = 4030004
	ErrorCodeAccountNotFound                 int64 = 4040001
	ErrorCodeAppNotFound                     int64 = 4040003
	ErrorCodeOriginalTransactionIDNotFound   int64 = 4040005
	ErrorCodeTestNotificationNotFound        int64 = 4040008
	ErrorCodeTransactionIDNotFound           int64 = 4040010
	ErrorCodeRateLimitExceeded               int64 = 4290000
	ErrorCodeGeneralInternal                 int64 = 5000000
)

// APIError is a non-2xx response from the App Store Server API.
type APIError struct {

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ErrorCode is the App Store error code from the response body; zero
	// when the body could not be decoded.
	ErrorCode int64

	// Message is the App Store error message, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.ErrorCode != 0 {
		return fmt.Sprintf("app store API error: HTTP %d, code %d: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("app store API error: HTTP %d", e.StatusCode)
}

// IsRetryable reports whether the store considers the request safe to retry
// later (rate limits and server-side failures). The client itself never
// retries; this is advisory for callers.
func (e *APIError) IsRetryable() bool {
	return e.ErrorCode == ErrorCodeRateLimitExceeded || e.StatusCode >= 500
}
