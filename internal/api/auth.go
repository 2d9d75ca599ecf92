package api

import (
	"context"
	"net/http"
	"strings"

	"pocketgrow/internal/core"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userWire `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a bearer token and the caller identity.
// The token is returned, not stored: installing it into the session store
// is the caller's decision.
func (c *Client) Login(ctx context.Context, email, password string) (string, core.UserSummary, error) {
	if err := validateCredentials(email, password); err != nil {
		return "", core.UserSummary{}, err
	}

	var resp loginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		anon:   true,
		write:  true,
	}, &resp)
	if err != nil {
		return "", core.UserSummary{}, err
	}
	if resp.Token == "" {
		return "", core.UserSummary{}, &core.RequestError{Message: "login response missing token"}
	}
	return resp.Token, resp.User.toCore(), nil
}

// Register creates a new colleague account.
func (c *Client) Register(ctx context.Context, name, email, password string) (core.UserSummary, error) {
	verr := core.ValidationError{Fields: map[string]string{}}
	if strings.TrimSpace(name) == "" {
		verr.Fields["name"] = core.ErrEmptyName.Error()
	}
	if strings.TrimSpace(email) == "" {
		verr.Fields["email"] = core.ErrEmptyEmail.Error()
	}
	if password == "" {
		verr.Fields["password"] = core.ErrEmptyPassword.Error()
	}
	if len(verr.Fields) > 0 {
		return core.UserSummary{}, &verr
	}

	var wire userWire
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/register",
		body:   registerRequest{Name: name, Email: email, Password: password},
		anon:   true,
		write:  true,
	}, &wire)
	if err != nil {
		return core.UserSummary{}, err
	}
	return wire.toCore(), nil
}

func validateCredentials(email, password string) error {
	verr := core.ValidationError{Fields: map[string]string{}}
	if strings.TrimSpace(email) == "" {
		verr.Fields["email"] = core.ErrEmptyEmail.Error()
	}
	if password == "" {
		verr.Fields["password"] = core.ErrEmptyPassword.Error()
	}
	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
