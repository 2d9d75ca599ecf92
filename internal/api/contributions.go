package api

import (
	"context"
	"net/http"
	"net/url"

	"pocketgrow/internal/core"
)

// ListContributions fetches every contribution visible to the caller. The
// server scopes the result by the token's identity and role: colleagues
// see their own records, admins see everyone's.
func (c *Client) ListContributions(ctx context.Context) ([]core.Contribution, error) {
	var wires []contributionWire
	err := c.do(ctx, request{method: http.MethodGet, path: "/contributions"}, &wires)
	if err != nil {
		return nil, err
	}

	records := make([]core.Contribution, 0, len(wires))
	for _, w := range wires {
		rec, err := w.toCore()
		if err != nil {
			return nil, &core.FetchError{Message: "malformed contribution in response", Err: err}
		}
		records = append(records, rec)
	}
	return records, nil
}

// CreateContribution records a new contribution for fields.OwnerID.
func (c *Client) CreateContribution(ctx context.Context, fields core.Fields) (core.Contribution, error) {
	var wire contributionWire
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/contributions",
		body:   fieldsToWire(fields),
		write:  true,
	}, &wire)
	if err != nil {
		return core.Contribution{}, err
	}

	rec, err := wire.toCore()
	if err != nil {
		return core.Contribution{}, &core.RequestError{Message: "malformed contribution in response", Err: err}
	}
	return rec, nil
}

// UpdateContribution patches an existing contribution.
func (c *Client) UpdateContribution(ctx context.Context, id string, fields core.Fields) (core.Contribution, error) {
	var wire contributionWire
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/contributions/" + url.PathEscape(id),
		body:   fieldsToWire(fields),
		write:  true,
	}, &wire)
	if err != nil {
		return core.Contribution{}, err
	}

	rec, err := wire.toCore()
	if err != nil {
		return core.Contribution{}, &core.RequestError{Message: "malformed contribution in response", Err: err}
	}
	return rec, nil
}

// DeleteContribution removes a contribution by identity.
func (c *Client) DeleteContribution(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/contributions/" + url.PathEscape(id),
		write:  true,
	}, nil)
}
