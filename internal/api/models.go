package api

// models.go - request and response bodies for the App Store Server API.
//
// Signed* fields are JWS compact serializations; decode them with the
// appstore.SignedDataVerifier, never directly. Date fields are milliseconds
// since the Unix epoch.

import "github.com/storekit-community/appstore-server-go/internal/appstore"

// TransactionInfoResponse is returned by the Get Transaction Info endpoint.
type TransactionInfoResponse struct {
	SignedTransactionInfo string `json:"signedTransactionInfo"`
}

// HistoryResponse is one page of a customer's transaction history.
type HistoryResponse struct {
	Revision           string               `json:"revision"`
	BundleID           string               `json:"bundleId"`
	AppAppleID         int64                `json:"appAppleId"`
	Environment        appstore.Environment `json:"environment"`
	HasMore            bool                 `json:"hasMore"`
	SignedTransactions []string             `json:"signedTransactions"`
}

// TransactionHistorySort orders transaction history pages.
type TransactionHistorySort string

const (
	TransactionHistorySortAscending  TransactionHistorySort = "ASCENDING"
	TransactionHistorySortDescending TransactionHistorySort = "DESCENDING"
)

// TransactionHistoryProductType filters transaction history by product
// category. The query enum differs from the human-readable type strings
// inside transaction payloads.
type TransactionHistoryProductType string

const (
	TransactionHistoryProductTypeAutoRenewable TransactionHistoryProductType = "AUTO_RENEWABLE"
	TransactionHistoryProductTypeNonRenewable  TransactionHistoryProductType = "NON_RENEWABLE"
	TransactionHistoryProductTypeConsumable    TransactionHistoryProductType = "CONSUMABLE"
	TransactionHistoryProductTypeNonConsumable TransactionHistoryProductType = "NON_CONSUMABLE"
)

// TransactionHistoryRequest holds the optional query constraints for the Get
// Transaction History endpoint.
type TransactionHistoryRequest struct {
	StartDate                    int64
	EndDate                      int64
	ProductIDs                   []string
	ProductTypes                 []TransactionHistoryProductType
	Sort                         TransactionHistorySort
	SubscriptionGroupIdentifiers []string
	InAppOwnershipType           appstore.InAppOwnershipType
	Revoked                      *bool
}

// LastTransactionsItem pairs a subscription's status with its most recent
// signed transaction and renewal info.
type LastTransactionsItem struct {
	Status                appstore.SubscriptionStatus `json:"status"`
	OriginalTransactionID string                      `json:"originalTransactionId"`
	SignedTransactionInfo string                      `json:"signedTransactionInfo"`
	SignedRenewalInfo     string                      `json:"signedRenewalInfo"`
}

// SubscriptionGroupIdentifierItem groups last transactions by subscription
// group.
type SubscriptionGroupIdentifierItem struct {
	SubscriptionGroupIdentifier string                 `json:"subscriptionGroupIdentifier"`
	LastTransactions            []LastTransactionsItem `json:"lastTransactions"`
}

// StatusResponse is returned by the Get All Subscription Statuses endpoint.
type StatusResponse struct {
	Environment appstore.Environment              `json:"environment"`
	BundleID    string                            `json:"bundleId"`
	AppAppleID  int64                             `json:"appAppleId"`
	Data        []SubscriptionGroupIdentifierItem `json:"data"`
}

// OrderLookupStatus reports whether an order ID lookup matched.
type OrderLookupStatus int32

const (
	OrderLookupStatusValid   OrderLookupStatus = 0
	OrderLookupStatusInvalid OrderLookupStatus = 1
)

// OrderLookupResponse is returned by the Look Up Order ID endpoint.
type OrderLookupResponse struct {
	Status             OrderLookupStatus `json:"status"`
	SignedTransactions []string          `json:"signedTransactions"`
}

// RefundHistoryResponse is one page of a customer's refunded purchases.
type RefundHistoryResponse struct {
	SignedTransactions []string `json:"signedTransactions"`
	Revision           string   `json:"revision"`
	HasMore            bool     `json:"hasMore"`
}

// NotificationHistoryRequest is the body for the Get Notification History
// endpoint. StartDate and EndDate are required by the store.
type NotificationHistoryRequest struct {
	StartDate           int64                     `json:"startDate"`
	EndDate             int64                     `json:"endDate"`
	NotificationType    appstore.NotificationType `json:"notificationType,omitempty"`
	NotificationSubtype appstore.Subtype          `json:"notificationSubtype,omitempty"`
	TransactionID       string                    `json:"transactionId,omitempty"`
	OnlyFailures        bool                      `json:"onlyFailures,omitempty"`
}

// SendAttemptResult is the store's record of one delivery attempt.
type SendAttemptResult string

const (
	SendAttemptResultSuccess            SendAttemptResult = "SUCCESS"
	SendAttemptResultTimedOut           SendAttemptResult = "TIMED_OUT"
	SendAttemptResultTLSIssue           SendAttemptResult = "TLS_ISSUE"
	SendAttemptResultCircularRedirect   SendAttemptResult = "CIRCULAR_REDIRECT"
	SendAttemptResultNoResponse         SendAttemptResult = "NO_RESPONSE"
	SendAttemptResultSocketIssue        SendAttemptResult = "SOCKET_ISSUE"
	SendAttemptResultUnsupportedCharset SendAttemptResult = "UNSUPPORTED_CHARSET"
	SendAttemptResultInvalidResponse    SendAttemptResult = "INVALID_RESPONSE"
	SendAttemptResultPrematureClose     SendAttemptResult = "PREMATURE_CLOSE"
	SendAttemptResultOther              SendAttemptResult = "OTHER"
)

func (r SendAttemptResult) Recognized() bool {
	switch r {
	case SendAttemptResultSuccess, SendAttemptResultTimedOut, SendAttemptResultTLSIssue,
		SendAttemptResultCircularRedirect, SendAttemptResultNoResponse,
		SendAttemptResultSocketIssue, SendAttemptResultUnsupportedCharset,
		SendAttemptResultInvalidResponse, SendAttemptResultPrematureClose,
		SendAttemptResultOther:
		return true
	}
	return false
}

// SendAttemptItem is one delivery attempt of a notification.
type SendAttemptItem struct {
	AttemptDate       int64             `json:"attemptDate"`
	SendAttemptResult SendAttemptResult `json:"sendAttemptResult"`
}

// NotificationHistoryResponseItem is one notification with its delivery
// attempts.
type NotificationHistoryResponseItem struct {
	SignedPayload string            `json:"signedPayload"`
	SendAttempts  []SendAttemptItem `json:"sendAttempts"`
}

// NotificationHistoryResponse is one page of notification history.
type NotificationHistoryResponse struct {
	PaginationToken     string                            `json:"paginationToken"`
	HasMore             bool                              `json:"hasMore"`
	NotificationHistory []NotificationHistoryResponseItem `json:"notificationHistory"`
}

// SendTestNotificationResponse is returned by the Request a Test
// Notification endpoint.
type SendTestNotificationResponse struct {
	TestNotificationToken string `json:"testNotificationToken"`
}

// CheckTestNotificationResponse is returned by the Get Test Notification
// Status endpoint.
type CheckTestNotificationResponse struct {
	SignedPayload string            `json:"signedPayload"`
	SendAttempts  []SendAttemptItem `json:"sendAttempts"`
}

// ExtendReasonCode explains why a renewal-date extension is requested.
type ExtendReasonCode int32

const (
	ExtendReasonCodeUndeclared           ExtendReasonCode = 0
	ExtendReasonCodeCustomerSatisfaction ExtendReasonCode = 1
	ExtendReasonCodeOtherReason          ExtendReasonCode = 2
	ExtendReasonCodeServiceIssue         ExtendReasonCode = 3
)

// ExtendRenewalDateRequest is the body for extending one subscription.
type ExtendRenewalDateRequest struct {
	ExtendByDays      int32            `json:"extendByDays"`
	ExtendReasonCode  ExtendReasonCode `json:"extendReasonCode"`
	RequestIdentifier string           `json:"requestIdentifier"`
}

// ExtendRenewalDateResponse reports the outcome of a single extension.
type ExtendRenewalDateResponse struct {
	OriginalTransactionID string `json:"originalTransactionId"`
	WebOrderLineItemID    string `json:"webOrderLineItemId"`
	Success               bool   `json:"success"`
	EffectiveDate         int64  `json:"effectiveDate"`
}

// MassExtendRenewalDateRequest is the body for extending renewal dates for
// all eligible active subscribers of a product.
type MassExtendRenewalDateRequest struct {
	ExtendByDays           int32            `json:"extendByDays"`
	ExtendReasonCode       ExtendReasonCode `json:"extendReasonCode"`
	RequestIdentifier      string           `json:"requestIdentifier"`
	StorefrontCountryCodes []string         `json:"storefrontCountryCodes,omitempty"`
	ProductID              string           `json:"productId"`
}

// MassExtendRenewalDateResponse acknowledges a mass extension request.
type MassExtendRenewalDateResponse struct {
	RequestIdentifier string `json:"requestIdentifier"`
}

// MassExtendRenewalDateStatusResponse reports the progress of a mass
// extension request.
type MassExtendRenewalDateStatusResponse struct {
	RequestIdentifier string `json:"requestIdentifier"`
	Complete          bool   `json:"complete"`
	CompleteDate      int64  `json:"completeDate,omitempty"`
	SucceededCount    int64  `json:"succeededCount,omitempty"`
	FailedCount       int64  `json:"failedCount,omitempty"`
}

// ConsumptionRequest is the body for the Send Consumption Information
// endpoint, answering a CONSUMPTION_REQUEST notification.
type ConsumptionRequest struct {
	CustomerConsented        bool   `json:"customerConsented"`
	ConsumptionStatus        int32  `json:"consumptionStatus"`
	Platform                 int32  `json:"platform"`
	SampleContentProvided    bool   `json:"sampleContentProvided"`
	DeliveryStatus           int32  `json:"deliveryStatus"`
	AppAccountToken          string `json:"appAccountToken"`
	AccountTenure            int32  `json:"accountTenure"`
	PlayTime                 int32  `json:"playTime"`
	LifetimeDollarsRefunded  int32  `json:"lifetimeDollarsRefunded"`
	LifetimeDollarsPurchased int32  `json:"lifetimeDollarsPurchased"`
	UserStatus               int32  `json:"userStatus"`
	RefundPreference         int32  `json:"refundPreference,omitempty"`
}
