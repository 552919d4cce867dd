package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plateful/storefront/internal/model"
)

// Admin endpoints. All of these require an owner token (WithToken).

// CreateBranch registers a new branch.
func (c *Client) CreateBranch(ctx context.Context, branch model.Branch) (model.Branch, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/admin/branches", branch)
	if err != nil {
		return model.Branch{}, err
	}
	var created model.Branch
	if err := json.Unmarshal(body, &created); err != nil {
		return model.Branch{}, fmt.Errorf("decode created branch: %w", err)
	}
	return created, nil
}

// CreateDish adds a dish to a branch's menu.
func (c *Client) CreateDish(ctx context.Context, dish model.Dish) (model.Dish, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/admin/dishes", dish)
	if err != nil {
		return model.Dish{}, err
	}
	var created model.Dish
	if err := json.Unmarshal(body, &created); err != nil {
		return model.Dish{}, fmt.Errorf("decode created dish: %w", err)
	}
	return created, nil
}

type createUserRequest struct {
	model.User
	Password string `json:"password"`
}

// CreateUser registers a staff account with the given password.
func (c *Client) CreateUser(ctx context.Context, user model.User, password string) (model.User, error) {
	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/admin/users", createUserRequest{
		User:     user,
		Password: password,
	})
	if err != nil {
		return model.User{}, err
	}
	var created model.User
	if err := json.Unmarshal(body, &created); err != nil {
		return model.User{}, fmt.Errorf("decode created user: %w", err)
	}
	return created, nil
}
