package api

import (
	"context"
	"net/http"

	"pocketgrow/internal/core"
)

// ListUsers fetches every user summary. Admin-only on the server side;
// TotalSavings in the result is the server-computed value and is shown
// as-is (local sums are a display cross-check only).
func (c *Client) ListUsers(ctx context.Context) ([]core.UserSummary, error) {
	var wires []userWire
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users"}, &wires); err != nil {
		return nil, err
	}

	users := make([]core.UserSummary, 0, len(wires))
	for _, w := range wires {
		users = append(users, w.toCore())
	}
	return users, nil
}
