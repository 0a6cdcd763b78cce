package appstore

// notification.go - decoded App Store Server Notifications V2 payloads.
//
// A notification body carries one signedPayload JWS whose decoded form is a
// NotificationPayload. Exactly one of Data, Summary or ExternalPurchaseToken
// is populated, depending on the notification type.

import (
	"encoding/json"
	"strings"

	"github.com/storekit-community/appstore-server-go/internal/crypto"
)

// NotificationType is the event category of a server notification.
type NotificationType string

const (
	NotificationTypeSubscribed             NotificationType = "SUBSCRIBED"
	NotificationTypeDidChangeRenewalPref   NotificationType = "DID_CHANGE_RENEWAL_PREF"
	NotificationTypeDidChangeRenewalStatus NotificationType = "DID_CHANGE_RENEWAL_STATUS"
	NotificationTypeOfferRedeemed          NotificationType = "OFFER_REDEEMED"
	NotificationTypeDidRenew               NotificationType = "DID_RENEW"
	NotificationTypeExpired                NotificationType = "EXPIRED"
	NotificationTypeDidFailToRenew         NotificationType = "DID_FAIL_TO_RENEW"
	NotificationTypeGracePeriodExpired     NotificationType = "GRACE_PERIOD_EXPIRED"
	NotificationTypePriceIncrease          NotificationType = "PRICE_INCREASE"
	NotificationTypeRefund                 NotificationType = "REFUND"
	NotificationTypeRefundDeclined         NotificationType = "REFUND_DECLINED"
	NotificationTypeConsumptionRequest     NotificationType = "CONSUMPTION_REQUEST"
	NotificationTypeRenewalExtended        NotificationType = "RENEWAL_EXTENDED"
	NotificationTypeRevoke                 NotificationType = "REVOKE"
	NotificationTypeTest                   NotificationType = "TEST"
	NotificationTypeRenewalExtension       NotificationType = "RENEWAL_EXTENSION"
	NotificationTypeRefundReversed         NotificationType = "REFUND_REVERSED"
	NotificationTypeExternalPurchaseToken  NotificationType = "EXTERNAL_PURCHASE_TOKEN"
	NotificationTypeOneTimeCharge          NotificationType = "ONE_TIME_CHARGE"
	NotificationTypeMetadataUpdate         NotificationType = "METADATA_UPDATE"
	NotificationTypeMigration              NotificationType = "MIGRATION"
	NotificationTypePriceChange            NotificationType = "PRICE_CHANGE"
)

func (n NotificationType) Recognized() bool {
	switch n {
	case NotificationTypeSubscribed, NotificationTypeDidChangeRenewalPref,
		NotificationTypeDidChangeRenewalStatus, NotificationTypeOfferRedeemed,
		NotificationTypeDidRenew, NotificationTypeExpired,
		NotificationTypeDidFailToRenew, NotificationTypeGracePeriodExpired,
		NotificationTypePriceIncrease, NotificationTypeRefund,
		NotificationTypeRefundDeclined, NotificationTypeConsumptionRequest,
		NotificationTypeRenewalExtended, NotificationTypeRevoke,
		NotificationTypeTest, NotificationTypeRenewalExtension,
		NotificationTypeRefundReversed, NotificationTypeExternalPurchaseToken,
		NotificationTypeOneTimeCharge, NotificationTypeMetadataUpdate,
		NotificationTypeMigration, NotificationTypePriceChange:
		return true
	}
	return false
}

// Subtype qualifies a NotificationType with a more specific event.
type Subtype string

const (
	SubtypeInitialBuy        Subtype = "INITIAL_BUY"
	SubtypeResubscribe       Subtype = "RESUBSCRIBE"
	SubtypeDowngrade         Subtype = "DOWNGRADE"
	SubtypeUpgrade           Subtype = "UPGRADE"
	SubtypeAutoRenewEnabled  Subtype = "AUTO_RENEW_ENABLED"
	SubtypeAutoRenewDisabled Subtype = "AUTO_RENEW_DISABLED"
	SubtypeVoluntary         Subtype = "VOLUNTARY"
	SubtypeBillingRetry      Subtype = "BILLING_RETRY"
	SubtypePriceIncrease     Subtype = "PRICE_INCREASE"
	SubtypeGracePeriod       Subtype = "GRACE_PERIOD"
	SubtypePending           Subtype = "PENDING"
	SubtypeAccepted          Subtype = "ACCEPTED"
	SubtypeBillingRecovery   Subtype = "BILLING_RECOVERY"
	SubtypeProductNotForSale Subtype = "PRODUCT_NOT_FOR_SALE"
	SubtypeSummary           Subtype = "SUMMARY"
	SubtypeFailure           Subtype = "FAILURE"
	SubtypeUnreported        Subtype = "UNREPORTED"
)

func (s Subtype) Recognized() bool {
	switch s {
	case SubtypeInitialBuy, SubtypeResubscribe, SubtypeDowngrade, SubtypeUpgrade,
		SubtypeAutoRenewEnabled, SubtypeAutoRenewDisabled, SubtypeVoluntary,
		SubtypeBillingRetry, SubtypePriceIncrease, SubtypeGracePeriod,
		SubtypePending, SubtypeAccepted, SubtypeBillingRecovery,
		SubtypeProductNotForSale, SubtypeSummary, SubtypeFailure,
		SubtypeUnreported:
		return true
	}
	return false
}

// SubscriptionStatus is the renewal status of a subscription carried on
// notification data.
type SubscriptionStatus int32

const (
	SubscriptionStatusActive             SubscriptionStatus = 1
	SubscriptionStatusExpired            SubscriptionStatus = 2
	SubscriptionStatusBillingRetry       SubscriptionStatus = 3
	SubscriptionStatusBillingGracePeriod SubscriptionStatus = 4
	SubscriptionStatusRevoked            SubscriptionStatus = 5
)

func (s SubscriptionStatus) Recognized() bool {
	return s >= SubscriptionStatusActive && s <= SubscriptionStatusRevoked
}

// NotificationData is the transaction-bearing part of a notification. The
// signed transaction and renewal info fields are themselves JWS compact
// serializations and must be verified separately.
type NotificationData struct {
	AppAppleID               int64               `json:"appAppleId,omitempty"`
	BundleID                 string              `json:"bundleId"`
	BundleVersion            string              `json:"bundleVersion,omitempty"`
	Environment              Environment         `json:"environment"`
	SignedTransactionInfo    string              `json:"signedTransactionInfo,omitempty"`
	SignedRenewalInfo        string              `json:"signedRenewalInfo,omitempty"`
	Status                   *SubscriptionStatus `json:"status,omitempty"`
	ConsumptionRequestReason string              `json:"consumptionRequestReason,omitempty"`
}

// NotificationSummary is populated for RENEWAL_EXTENSION notifications with
// subtype SUMMARY, reporting the outcome of a mass renewal-date extension.
type NotificationSummary struct {
	RequestIdentifier      string      `json:"requestIdentifier"`
	Environment            Environment `json:"environment"`
	AppAppleID             int64       `json:"appAppleId,omitempty"`
	BundleID               string      `json:"bundleId"`
	ProductID              string      `json:"productId"`
	StorefrontCountryCodes []string    `json:"storefrontCountryCodes,omitempty"`
	FailedCount            int64       `json:"failedCount"`
	SucceededCount         int64       `json:"succeededCount"`
}

// ExternalPurchaseToken is populated for EXTERNAL_PURCHASE_TOKEN
// notifications. It carries no environment field; sandbox tokens are
// identified by a token identifier prefix.
type ExternalPurchaseToken struct {
	ExternalPurchaseID string `json:"externalPurchaseId"`
	TokenCreationDate  int64  `json:"tokenCreationDate"`
	AppAppleID         int64  `json:"appAppleId,omitempty"`
	BundleID           string `json:"bundleId"`
}

// sandboxTokenPrefix marks external purchase tokens issued in the sandbox.
const sandboxTokenPrefix = "SANDBOX_"

// Environment derives the token's environment from its identifier prefix.
func (t *ExternalPurchaseToken) Environment() Environment {
	if strings.HasPrefix(t.ExternalPurchaseID, sandboxTokenPrefix) {
		return EnvironmentSandbox
	}
	return EnvironmentProduction
}

// NotificationPayload is a decoded server notification signedPayload.
type NotificationPayload struct {
	NotificationType      NotificationType       `json:"notificationType"`
	Subtype               Subtype                `json:"subtype,omitempty"`
	NotificationUUID      string                 `json:"notificationUUID"`
	Version               string                 `json:"version"`
	SignedDate            int64                  `json:"signedDate"`
	Data                  *NotificationData      `json:"data,omitempty"`
	Summary               *NotificationSummary   `json:"summary,omitempty"`
	ExternalPurchaseToken *ExternalPurchaseToken `json:"externalPurchaseToken,omitempty"`
}

// Checksum returns the canonical-JSON SHA-256 of the payload, stable across
// key order and whitespace. Receivers use it to deduplicate redelivered
// notifications.
func (p *NotificationPayload) Checksum() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", WrapInternalError(err, "failed to marshal notification payload")
	}
	sum, err := crypto.CanonicalSHA256Hex(raw)
	if err != nil {
		return "", WrapInternalError(err, "failed to checksum notification payload")
	}
	return sum, nil
}
