package appstore

// renewal_info.go - decoded subscription renewal payloads (signedRenewalInfo).

// AutoRenewStatus is the renewal state of an auto-renewable subscription.
type AutoRenewStatus int32

const (
	AutoRenewStatusOff AutoRenewStatus = 0
	AutoRenewStatusOn  AutoRenewStatus = 1
)

func (s AutoRenewStatus) Recognized() bool {
	return s == AutoRenewStatusOff || s == AutoRenewStatusOn
}

// ExpirationIntent is the store's reason a subscription expired.
type ExpirationIntent int32

const (
	ExpirationIntentCustomerCancelled  ExpirationIntent = 1
	ExpirationIntentBillingError       ExpirationIntent = 2
	ExpirationIntentPriceIncrease      ExpirationIntent = 3
	ExpirationIntentProductUnavailable ExpirationIntent = 4
	ExpirationIntentOther              ExpirationIntent = 5
)

func (i ExpirationIntent) Recognized() bool {
	return i >= ExpirationIntentCustomerCancelled && i <= ExpirationIntentOther
}

// PriceIncreaseStatus is the customer's response to a subscription price
// increase.
type PriceIncreaseStatus int32

const (
	PriceIncreaseStatusNotResponded PriceIncreaseStatus = 0
	PriceIncreaseStatusConsented    PriceIncreaseStatus = 1
)

func (s PriceIncreaseStatus) Recognized() bool {
	return s == PriceIncreaseStatusNotResponded || s == PriceIncreaseStatusConsented
}

// RenewalInfoPayload is a decoded signedRenewalInfo payload.
//
// Renewal payloads carry no bundle identifier on the wire; identity checking
// for this kind is environment-only.
type RenewalInfoPayload struct {
	OriginalTransactionID       string               `json:"originalTransactionId"`
	AutoRenewProductID          string               `json:"autoRenewProductId,omitempty"`
	ProductID                   string               `json:"productId"`
	AutoRenewStatus             AutoRenewStatus      `json:"autoRenewStatus"`
	RenewalPrice                int64                `json:"renewalPrice,omitempty"`
	Currency                    string               `json:"currency,omitempty"`
	SignedDate                  int64                `json:"signedDate"`
	Environment                 Environment          `json:"environment"`
	RecentSubscriptionStartDate int64                `json:"recentSubscriptionStartDate,omitempty"`
	RenewalDate                 int64                `json:"renewalDate,omitempty"`
	ExpirationIntent            *ExpirationIntent    `json:"expirationIntent,omitempty"`
	GracePeriodExpiresDate      int64                `json:"gracePeriodExpiresDate,omitempty"`
	IsInBillingRetryPeriod      bool                 `json:"isInBillingRetryPeriod,omitempty"`
	OfferType                   *OfferType           `json:"offerType,omitempty"`
	OfferIdentifier             string               `json:"offerIdentifier,omitempty"`
	OfferDiscountType           OfferDiscountType    `json:"offerDiscountType,omitempty"`
	PriceIncreaseStatus         *PriceIncreaseStatus `json:"priceIncreaseStatus,omitempty"`
	EligibleWinBackOfferIDs     []string             `json:"eligibleWinBackOfferIds,omitempty"`
	AppAccountToken             string               `json:"appAccountToken,omitempty"`
	AppTransactionID            string               `json:"appTransactionId,omitempty"`
}
