package apiclient

import (
	"context"
	"net/http"

	"github.com/Domenick1991/airdash/internal/domain"
)

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	env, err := c.server(ctx, http.MethodGet, "/users/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.User](env.Data)
}

func (c *Client) GetUser(ctx context.Context, id int64) (domain.User, error) {
	env, err := c.server(ctx, http.MethodGet, idPath("/users", id, ""), nil, nil)
	if err != nil {
		return domain.User{}, err
	}
	return decode[domain.User](env.Data)
}

func (c *Client) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) (domain.User, error) {
	env, err := c.server(ctx, http.MethodPut, idPath("/users", id, ""), nil, update)
	if err != nil {
		return domain.User{}, err
	}
	return decode[domain.User](env.Data)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	_, err := c.server(ctx, http.MethodDelete, idPath("/users", id, ""), nil, nil)
	return err
}

type changeRoleRequest struct {
	UserID  int64       `json:"user_id"`
	NewRole domain.Role `json:"nova_uloga"`
}

func (c *Client) ChangeRole(ctx context.Context, userID int64, role domain.Role) (domain.User, error) {
	env, err := c.server(ctx, http.MethodPost, "/users/change-role", nil, changeRoleRequest{UserID: userID, NewRole: role})
	if err != nil {
		return domain.User{}, err
	}
	return decode[domain.User](env.Data)
}

type depositRequest struct {
	Amount float64 `json:"iznos"`
}

// Deposit adds amount to the user's balance and returns the new balance.
func (c *Client) Deposit(ctx context.Context, userID int64, amount float64) (float64, error) {
	env, err := c.server(ctx, http.MethodPost, idPath("/users", userID, "/deposit"), nil, depositRequest{Amount: amount})
	if err != nil {
		return 0, err
	}
	if env.Balance != nil {
		return *env.Balance, nil
	}
	data, err := decode[struct {
		Balance float64 `json:"stanje_racuna"`
	}](env.Data)
	return data.Balance, err
}
