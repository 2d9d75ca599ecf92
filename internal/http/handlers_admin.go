package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"pocketgrow/internal/core"
	"pocketgrow/internal/ledger"
	"pocketgrow/internal/log"
)

type adminPage struct {
	AdminName string

	Users       []core.UserSummary
	LocalTotals map[string]int64 // client-side sums, shown as a cross-check
	GrandTotal  int64

	Records   []core.Contribution
	Selected  string // owner filter, "" for everyone
	Page      int
	Pages     int
	ShowPager bool

	EditID string
	Edit   core.Contribution

	Today       string
	FieldErrors map[string]string
	Error       string
}

// handleAdmin renders the management view: every user's summary and the
// shared contribution ledger. The owner filter and page index come from
// the query string so nothing leaks between scopes or admins.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromRequest(r)

	users, err := s.loadUsers(r)
	if err != nil {
		s.render(w, r, http.StatusBadGateway, "admin.html", adminPage{
			AdminName: sess.Name,
			Error:     "Could not load users. Please try again.",
		})
		return
	}

	store := ledger.New(s.apiClient, core.ScopeAll, s.logger)
	if err := store.Load(r.Context()); err != nil {
		s.render(w, r, http.StatusBadGateway, "admin.html", adminPage{
			AdminName: sess.Name,
			Users:     users,
			Error:     "Could not load contributions. Please try again.",
		})
		return
	}

	scope := core.ScopeAll
	selected := strings.TrimSpace(r.URL.Query().Get("user"))
	if selected != "" {
		scope = core.ScopeUser(selected)
	}

	page := store.ClampPage(scope, pageParam(r), s.cfg.PageSize)
	pages := store.PageCount(scope, s.cfg.PageSize)
	records := store.Page(scope, page, s.cfg.PageSize)

	data := adminPage{
		AdminName:   sess.Name,
		Users:       users,
		LocalTotals: make(map[string]int64, len(users)),
		GrandTotal:  store.Total(),
		Records:     records,
		Selected:    selected,
		Page:        page,
		Pages:       pages,
		ShowPager:   pages > 1,
		Today:       time.Now().Format("2006-01-02"),
	}
	for _, u := range users {
		data.LocalTotals[u.ID] = store.TotalFor(u.ID)
	}

	switch r.URL.Query().Get("error") {
	case "invalid_fields":
		data.Error = "The contribution was rejected: check the user, amount (minimum 100) and date."
	case "in_flight":
		data.Error = "That record is still being saved. Give it a moment and try again."
	case "not_found":
		data.Error = "That contribution no longer exists."
	case "save_failed":
		data.Error = "Could not save the change. Please try again."
	}

	if editID := strings.TrimSpace(r.URL.Query().Get("edit")); editID != "" {
		for _, rec := range records {
			if rec.ID == editID {
				data.EditID = editID
				data.Edit = rec
				break
			}
		}
	}

	s.render(w, r, http.StatusOK, "admin.html", data)
}

// loadUsers serves user summaries through the LRU so a busy admin page
// does not hammer /users; mutations clear the cache.
func (s *Server) loadUsers(r *http.Request) ([]core.UserSummary, error) {
	sess, _ := sessionFromRequest(r)
	key := "users:" + sess.UserID

	if users, ok := s.usersCache.Get(key); ok {
		return users, nil
	}

	users, err := s.apiClient.ListUsers(r.Context())
	if err != nil {
		return nil, err
	}
	s.usersCache.Set(key, users)
	return users, nil
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	s.adminMutation(w, r, func() error {
		_, err := s.coordinator.Create(r.Context(), adminFields(r))
		return err
	}, log.OpCreate)
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.adminMutation(w, r, func() error {
		_, err := s.coordinator.Update(r.Context(), id, adminFields(r))
		return err
	}, log.OpUpdate)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.adminMutation(w, r, func() error {
		return s.coordinator.Delete(r.Context(), id)
	}, log.OpDelete)
}

// adminMutation runs one mutation and redirects back to the admin view,
// carrying the current filter and page along. Failures land back on the
// page with a message instead of a dead end.
func (s *Server) adminMutation(w http.ResponseWriter, r *http.Request, op func() error, opName string) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	back := adminReturnURL(r)
	if err := op(); err != nil {
		s.logger.WarnContext(r.Context(), "Admin mutation rejected",
			log.FieldOperation, opName,
			log.FieldError, err.Error())
		http.Redirect(w, r, back+errorParam(back, err), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func adminFields(r *http.Request) core.Fields {
	return core.Fields{
		OwnerID: strings.TrimSpace(r.Form.Get("userId")),
		Amount:  amountParam(r.Form.Get("amount")),
		Date:    strings.TrimSpace(r.Form.Get("date")),
	}
}

// adminReturnURL rebuilds the admin view URL from the form's filter and
// page fields so a mutation returns the admin where they were.
func adminReturnURL(r *http.Request) string {
	q := url.Values{}
	if v := strings.TrimSpace(r.Form.Get("return_user")); v != "" {
		q.Set("user", v)
	}
	if v := strings.TrimSpace(r.Form.Get("return_page")); v != "" {
		q.Set("page", v)
	}
	if len(q) == 0 {
		return "/admin"
	}
	return "/admin?" + q.Encode()
}

func errorParam(base string, err error) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	msg := "save_failed"
	if core.AsValidation(err) != nil {
		msg = "invalid_fields"
	} else if core.IsConflict(err) {
		msg = "in_flight"
	} else if core.IsNotFound(err) {
		msg = "not_found"
	}
	return sep + "error=" + msg
}
