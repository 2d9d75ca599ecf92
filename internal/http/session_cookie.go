package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"pocketgrow/internal/core"
)

// sessionCookie is the browser's analog of the CLI session file: the
// bearer token plus enough identity to route and render without a round
// trip. The token's authority lives at the remote API, so the cookie
// itself is just transport.
const sessionCookie = "pg_session"

type browserSession struct {
	Token  string    `json:"token"`
	UserID string    `json:"uid"`
	Name   string    `json:"name"`
	Role   core.Role `json:"role"`
}

func sessionFromRequest(r *http.Request) (browserSession, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return browserSession{}, false
	}
	data, err := base64.URLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return browserSession{}, false
	}
	var sess browserSession
	if err := json.Unmarshal(data, &sess); err != nil || sess.Token == "" {
		return browserSession{}, false
	}
	return sess, true
}

func setSessionCookie(w http.ResponseWriter, token string, user core.UserSummary) {
	data, _ := json.Marshal(browserSession{
		Token:  token,
		UserID: user.ID,
		Name:   user.Name,
		Role:   user.Role,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    base64.URLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
