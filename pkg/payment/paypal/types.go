package paypal

// tokenResponse is the OAuth2 client-credentials grant response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// MoneyAmount is a PayPal money value. Value is a decimal string in major
// units, e.g. "52.99".
type MoneyAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

// CreateOrderRequest represents the request body of the Create Order API
type CreateOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
	PaymentSource *PaymentSource `json:"payment_source,omitempty"`
}

// PurchaseUnit is a single unit of a PayPal order
type PurchaseUnit struct {
	ReferenceID string      `json:"reference_id,omitempty"`
	Description string      `json:"description,omitempty"`
	Amount      MoneyAmount `json:"amount"`
}

// PaymentSource holds the buyer-experience configuration
type PaymentSource struct {
	PayPal *PayPalSource `json:"paypal,omitempty"`
}

// PayPalSource configures the PayPal wallet redirect experience
type PayPalSource struct {
	ExperienceContext ExperienceContext `json:"experience_context"`
}

// ExperienceContext holds the redirect URLs for buyer approval
type ExperienceContext struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

// Link is a HATEOAS link in a PayPal response
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Order represents a PayPal order
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Links         []Link         `json:"links"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
}

// ApproveURL returns the buyer approval link of the order, if present
func (o *Order) ApproveURL() string {
	for _, link := range o.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}

// ErrorResponse represents a PayPal API error payload
type ErrorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}
