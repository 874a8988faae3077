package api

import (
	"context"

	storefront "github.com/tiendio/storefront-go"
)

// ============================================================================
// Auth Endpoints
// ============================================================================

// Login exchanges credentials for a bearer token and user profile.
func (c *Client) Login(ctx context.Context, email, password string) (*storefront.Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	resp, err := c.dispatcher.Post(ctx, "/auth/login", body)
	if err != nil {
		return nil, err
	}

	var creds storefront.Credentials
	if err := resp.DecodeData(&creds); err != nil {
		return nil, err
	}
	if creds.Token == "" || creds.User == nil {
		return nil, storefront.NewError(storefront.ErrCodeServerError,
			"login response missing token or user")
	}
	return &creds, nil
}

// Register creates an account. It does not authenticate the caller;
// activation happens through the backend's email-verification flow.
func (c *Client) Register(ctx context.Context, in storefront.RegisterInput) (*storefront.Receipt, error) {
	resp, err := c.dispatcher.Post(ctx, "/auth/register", in)
	if err != nil {
		return nil, err
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, err
	}
	return &storefront.Receipt{Message: envelope.Message}, nil
}

// Me re-fetches the profile for the credential the dispatcher injects.
func (c *Client) Me(ctx context.Context) (*storefront.UserProfile, error) {
	resp, err := c.dispatcher.Get(ctx, "/auth/me")
	if err != nil {
		return nil, err
	}

	var data struct {
		User *storefront.UserProfile `json:"user"`
	}
	if err := resp.DecodeData(&data); err != nil {
		return nil, err
	}
	if data.User == nil {
		return nil, storefront.NewError(storefront.ErrCodeServerError,
			"me response missing user")
	}
	return data.User, nil
}

// RequestPasswordReset asks the backend to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.dispatcher.Post(ctx, "/auth/forgot-password", map[string]string{"email": email})
	return err
}

// ResetPassword redeems a reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "password": newPassword}
	_, err := c.dispatcher.Post(ctx, "/auth/reset-password", body)
	return err
}
