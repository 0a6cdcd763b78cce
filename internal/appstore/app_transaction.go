package appstore

// app_transaction.go - decoded app transaction payloads (signed device
// receipts). The environment travels in the receiptType field.

// PurchasePlatform identifies the platform an original purchase was made on.
type PurchasePlatform string

const (
	PurchasePlatformIOS   PurchasePlatform = "iOS"
	PurchasePlatformMacOS PurchasePlatform = "macOS"
)

func (p PurchasePlatform) Recognized() bool {
	return p == PurchasePlatformIOS || p == PurchasePlatformMacOS
}

// AppTransactionPayload is a decoded signed app transaction.
type AppTransactionPayload struct {
	// ReceiptType carries the environment for app transactions.
	ReceiptType                Environment      `json:"receiptType"`
	AppAppleID                 int64            `json:"appAppleId"`
	BundleID                   string           `json:"bundleId"`
	ApplicationVersion         string           `json:"applicationVersion"`
	VersionExternalIdentifier  int64            `json:"versionExternalIdentifier,omitempty"`
	ReceiptCreationDate        int64            `json:"receiptCreationDate"`
	OriginalPurchaseDate       int64            `json:"originalPurchaseDate"`
	OriginalApplicationVersion string           `json:"originalApplicationVersion"`
	DeviceVerification         string           `json:"deviceVerification,omitempty"`
	DeviceVerificationNonce    string           `json:"deviceVerificationNonce,omitempty"`
	PreorderDate               int64            `json:"preorderDate,omitempty"`
	AppTransactionID           string           `json:"appTransactionId,omitempty"`
	OriginalPlatform           PurchasePlatform `json:"originalPlatform,omitempty"`
}

// Environment returns the environment the receipt was issued in.
func (p *AppTransactionPayload) Environment() Environment {
	return p.ReceiptType
}
