package paypal

// Config represents the configuration for the PayPal client
type Config struct {
	// ClientID is the PayPal REST application client id
	ClientID string

	// Secret is the PayPal REST application secret
	Secret string

	// BaseURL is the PayPal API base URL (sandbox or live)
	BaseURL string

	// ReturnURL is the redirect URL after buyer approval
	ReturnURL string

	// CancelURL is the redirect URL when the buyer cancels
	CancelURL string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrInvalidRequest
	}
	if c.Secret == "" {
		return ErrInvalidRequest
	}
	if c.BaseURL == "" {
		return ErrInvalidRequest
	}
	if c.ReturnURL == "" {
		return ErrInvalidRequest
	}
	if c.CancelURL == "" {
		return ErrInvalidRequest
	}
	return nil
}
