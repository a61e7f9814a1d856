package client

import "context"

// Register creates a new account through the public signup endpoint. The
// server grants new accounts the default worker role.
func (c *Client) Register(ctx context.Context, username, email, password string) (*User, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	var out User
	if _, err := c.Post(ctx, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the current user's password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := map[string]string{
		"current_password": currentPassword,
		"new_password":     newPassword,
	}
	_, err := c.Post(ctx, "/auth/change-password", body, nil)
	return err
}

// TOTPSetup is the server's response to starting 2FA enrollment.
type TOTPSetup struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Setup2FA starts 2FA enrollment. The returned secret must be confirmed with
// Enable2FA before two-factor auth takes effect.
func (c *Client) Setup2FA(ctx context.Context) (*TOTPSetup, error) {
	var out TOTPSetup
	if _, err := c.Post(ctx, "/auth/2fa/setup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enable2FA confirms enrollment with the first TOTP code. The backup codes
// are returned exactly once.
func (c *Client) Enable2FA(ctx context.Context, code string) ([]string, error) {
	body := map[string]string{"code": code}
	var out struct {
		BackupCodes []string `json:"backup_codes"`
	}
	if _, err := c.Post(ctx, "/auth/2fa/enable", body, &out); err != nil {
		return nil, err
	}
	return out.BackupCodes, nil
}

// Disable2FA turns off two-factor auth, confirmed by the account password.
func (c *Client) Disable2FA(ctx context.Context, password string) error {
	body := map[string]string{"password": password}
	_, err := c.Post(ctx, "/auth/2fa/disable", body, nil)
	return err
}
