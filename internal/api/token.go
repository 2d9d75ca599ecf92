package api

import "context"

type tokenContextKey struct{}

// WithToken returns a context carrying a bearer token that overrides the
// client's TokenSource for calls made with it. The web front-end uses this
// to thread the per-browser session token through a shared client.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func tokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}
