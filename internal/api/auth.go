package api

import "context"

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitiateRegistration starts a signup and makes the API send an OTP to the
// registrant's email.
func (c *Client) InitiateRegistration(ctx context.Context, req RegisterRequest) (*Ack, error) {
	var ack Ack
	if err := c.post(ctx, "/auth/register/initiate", "", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// CompleteRegistration submits the OTP and returns the created user.
func (c *Client) CompleteRegistration(ctx context.Context, req CompleteRegistrationRequest) (*User, error) {
	var user User
	if err := c.post(ctx, "/auth/register/complete", "", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ResendOTP asks the API to send a fresh code.
func (c *Client) ResendOTP(ctx context.Context, req ResendOTPRequest) (*Ack, error) {
	var ack Ack
	if err := c.post(ctx, "/auth/otp/resend", "", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// Logout tells the API the token is no longer in use.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.post(ctx, "/auth/logout", token, nil, nil)
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.get(ctx, "/auth/me", token, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Refresh trades the current token for a new one.
func (c *Client) Refresh(ctx context.Context, token string) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/auth/refresh", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
