package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/session"
)

// Login authenticates and stores the resulting session. The backend puts
// the user under "user"; older builds used "data".
func (c *Client) Login(ctx context.Context, creds domain.LoginCredentials) (session.Session, error) {
	env, err := c.server(ctx, http.MethodPost, "/auth/login", nil, creds)
	if err != nil {
		return session.Session{}, err
	}
	raw := env.User
	if len(raw) == 0 || string(raw) == "null" {
		raw = env.Data
	}
	user, err := decode[*domain.User](raw)
	if err != nil {
		return session.Session{}, err
	}
	s := session.Session{Token: env.AccessToken, User: user}
	if !s.Authenticated() {
		return session.Session{}, errors.New("login response carried no token or user")
	}
	if err := c.session.Set(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("store session: %w", err)
	}
	return s, nil
}

func (c *Client) Register(ctx context.Context, data domain.RegisterData) (domain.User, error) {
	env, err := c.server(ctx, http.MethodPost, "/auth/register", nil, data)
	if err != nil {
		return domain.User{}, err
	}
	return decode[domain.User](env.Data)
}

// Logout tells the server and always clears the local session, even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, reqErr := c.server(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if reqErr != nil {
		c.logger.WithError(reqErr).Debug("logout request failed")
	}
	return c.session.Clear(ctx)
}

func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	env, err := c.server(ctx, http.MethodGet, "/auth/profile", nil, nil)
	if err != nil {
		return domain.User{}, err
	}
	return decode[domain.User](env.Data)
}
