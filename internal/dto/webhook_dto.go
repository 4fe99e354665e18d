package dto

type RevenueCatWebhook struct {
	APIVersion string          `json:"api_version"`
	Event      RevenueCatEvent `json:"event"`
}

type RevenueCatEvent struct {
	Type                     string   `json:"type"`
	ID                       string   `json:"id"`
	AppUserID                string   `json:"app_user_id"`
	ProductID                string   `json:"product_id"`
	EntitlementIDs           []string `json:"entitlement_ids"`
	PeriodType               string   `json:"period_type"`
	PurchasedAtMs            int64    `json:"purchased_at_ms"`
	Environment              string   `json:"environment"`
	Store                    string   `json:"store"`
	OriginalAppUserID        string   `json:"original_app_user_id"`
	TransactionID            string   `json:"transaction_id"`
	OriginalTransactionID    string   `json:"original_transaction_id"`
	CountryCode              string   `json:"country_code"`
	Currency                 string   `json:"currency"`
	Price                    float64  `json:"price"`
	PriceInPurchasedCurrency float64  `json:"price_in_purchased_currency"`
}

// WebhookError is the 4xx body shape the RevenueCat integration expects.
type WebhookError struct {
	Error string `json:"error"`
}

// WebhookIgnored acknowledges a non-purchase lifecycle event.
type WebhookIgnored struct {
	Received bool   `json:"received"`
	Message  string `json:"message"`
}

// PurchaseProcessed is returned when credits were applied for the first time.
type PurchaseProcessed struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UserID        string `json:"user_id"`
	ProductID     string `json:"product_id"`
	CreditsAdded  int    `json:"credits_added"`
	NewCredits    int    `json:"new_credits"`
	TransactionID string `json:"transaction_id"`
}

// PurchaseDuplicate is returned when the transaction id was already applied.
type PurchaseDuplicate struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	Duplicate     bool   `json:"duplicate"`
	Credits       int    `json:"credits"`
}

// WebhookFailure is the 500 body; the provider redelivers on it.
type WebhookFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
