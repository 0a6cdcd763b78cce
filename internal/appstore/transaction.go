package appstore

// transaction.go - decoded transaction payloads (signedTransactionInfo).
//
// Field names follow the store's JSON wire format. Timestamps are
// milliseconds since the Unix epoch. Enum-typed fields keep whatever raw
// value the store sent; callers use Recognized() to detect values added
// after this library was built.

// ProductType is the in-app purchase product type of a transaction.
type ProductType string

const (
	ProductTypeAutoRenewableSubscription ProductType = "Auto-Renewable Subscription"
	ProductTypeNonConsumable             ProductType = "Non-Consumable"
	ProductTypeConsumable                ProductType = "Consumable"
	ProductTypeNonRenewingSubscription   ProductType = "Non-Renewing Subscription"
)

func (p ProductType) Recognized() bool {
	switch p {
	case ProductTypeAutoRenewableSubscription, ProductTypeNonConsumable,
		ProductTypeConsumable, ProductTypeNonRenewingSubscription:
		return true
	}
	return false
}

// InAppOwnershipType describes the relationship between the purchasing
// account and the in-app purchase.
type InAppOwnershipType string

const (
	InAppOwnershipTypePurchased    InAppOwnershipType = "PURCHASED"
	InAppOwnershipTypeFamilyShared InAppOwnershipType = "FAMILY_SHARED"
)

func (o InAppOwnershipType) Recognized() bool {
	return o == InAppOwnershipTypePurchased || o == InAppOwnershipTypeFamilyShared
}

// TransactionReason is the cause of a purchase transaction.
type TransactionReason string

const (
	TransactionReasonPurchase TransactionReason = "PURCHASE"
	TransactionReasonRenewal  TransactionReason = "RENEWAL"
)

func (r TransactionReason) Recognized() bool {
	return r == TransactionReasonPurchase || r == TransactionReasonRenewal
}

// OfferType is the type of subscription offer applied to a transaction.
type OfferType int32

const (
	OfferTypeIntroductory OfferType = 1
	OfferTypePromotional  OfferType = 2
	OfferTypeCode         OfferType = 3
	OfferTypeWinBack      OfferType = 4
)

func (o OfferType) Recognized() bool {
	return o >= OfferTypeIntroductory && o <= OfferTypeWinBack
}

// OfferDiscountType is the payment mode of a subscription offer.
type OfferDiscountType string

const (
	OfferDiscountTypeFreeTrial  OfferDiscountType = "FREE_TRIAL"
	OfferDiscountTypePayAsYouGo OfferDiscountType = "PAY_AS_YOU_GO"
	OfferDiscountTypePayUpFront OfferDiscountType = "PAY_UP_FRONT"
)

func (d OfferDiscountType) Recognized() bool {
	switch d {
	case OfferDiscountTypeFreeTrial, OfferDiscountTypePayAsYouGo, OfferDiscountTypePayUpFront:
		return true
	}
	return false
}

// RevocationReason is the store's reason for revoking a transaction.
type RevocationReason int32

const (
	RevocationReasonOther    RevocationReason = 0
	RevocationReasonAppIssue RevocationReason = 1
)

func (r RevocationReason) Recognized() bool {
	return r == RevocationReasonOther || r == RevocationReasonAppIssue
}

// TransactionPayload is a decoded signedTransactionInfo payload.
type TransactionPayload struct {
	TransactionID               string             `json:"transactionId"`
	OriginalTransactionID       string             `json:"originalTransactionId"`
	WebOrderLineItemID          string             `json:"webOrderLineItemId,omitempty"`
	BundleID                    string             `json:"bundleId"`
	ProductID                   string             `json:"productId"`
	SubscriptionGroupIdentifier string             `json:"subscriptionGroupIdentifier,omitempty"`
	PurchaseDate                int64              `json:"purchaseDate"`
	OriginalPurchaseDate        int64              `json:"originalPurchaseDate"`
	ExpiresDate                 int64              `json:"expiresDate,omitempty"`
	Quantity                    int32              `json:"quantity"`
	Type                        ProductType        `json:"type"`
	AppAccountToken             string             `json:"appAccountToken,omitempty"`
	InAppOwnershipType          InAppOwnershipType `json:"inAppOwnershipType"`
	SignedDate                  int64              `json:"signedDate"`
	RevocationReason            *RevocationReason  `json:"revocationReason,omitempty"`
	RevocationDate              int64              `json:"revocationDate,omitempty"`
	IsUpgraded                  bool               `json:"isUpgraded,omitempty"`
	OfferType                   *OfferType         `json:"offerType,omitempty"`
	OfferIdentifier             string             `json:"offerIdentifier,omitempty"`
	OfferDiscountType           OfferDiscountType  `json:"offerDiscountType,omitempty"`
	Environment                 Environment        `json:"environment"`
	Storefront                  string             `json:"storefront,omitempty"`
	StorefrontID                string             `json:"storefrontId,omitempty"`
	TransactionReason           TransactionReason  `json:"transactionReason,omitempty"`
	Currency                    string             `json:"currency,omitempty"`
	Price                       int64              `json:"price,omitempty"`
	AppTransactionID            string             `json:"appTransactionId,omitempty"`
}
