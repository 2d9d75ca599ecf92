package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"pocketgrow/internal/core"
	"pocketgrow/internal/ledger"
	"pocketgrow/internal/log"
)

type savingsPage struct {
	UserName  string
	Total     int64
	Records   []core.Contribution
	Page      int
	Pages     int
	ShowPager bool

	Today       string
	FieldErrors map[string]string
	Error       string
}

// handleMySavings renders the colleague view: running total plus a page of
// their own contributions. Pagination state lives in the query string, not
// in the server.
func (s *Server) handleMySavings(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromRequest(r)

	store := ledger.New(s.apiClient, core.ScopeUser(sess.UserID), s.logger)
	if err := store.Load(r.Context()); err != nil {
		s.render(w, r, http.StatusBadGateway, "savings.html", savingsPage{
			UserName: sess.Name,
			Error:    "Could not load your savings. Please try again.",
		})
		return
	}

	scope := core.ScopeUser(sess.UserID)
	page := store.ClampPage(scope, pageParam(r), s.cfg.PageSize)
	pages := store.PageCount(scope, s.cfg.PageSize)

	s.render(w, r, http.StatusOK, "savings.html", savingsPage{
		UserName:  sess.Name,
		Total:     store.Total(),
		Records:   store.Page(scope, page, s.cfg.PageSize),
		Page:      page,
		Pages:     pages,
		ShowPager: pages > 1,
		Today:     time.Now().Format("2006-01-02"),
	})
}

// handleSelfContribute records a contribution for the logged-in user.
func (s *Server) handleSelfContribute(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromRequest(r)
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/my-savings", http.StatusSeeOther)
		return
	}

	fields := core.Fields{
		OwnerID: sess.UserID,
		Amount:  amountParam(r.Form.Get("amount")),
		Date:    strings.TrimSpace(r.Form.Get("date")),
	}

	if _, err := s.coordinator.Create(r.Context(), fields); err != nil {
		s.logger.WarnContext(r.Context(), "Self contribution rejected",
			log.FieldOperation, log.OpCreate,
			log.FieldOwnerID, sess.UserID,
			log.FieldError, err.Error())
		s.renderSavingsError(w, r, sess, fields, err)
		return
	}

	http.Redirect(w, r, "/my-savings", http.StatusSeeOther)
}

// renderSavingsError re-renders the savings page with the rejected form's
// field errors while keeping the current ledger visible.
func (s *Server) renderSavingsError(w http.ResponseWriter, r *http.Request, sess browserSession, fields core.Fields, cause error) {
	page := savingsPage{
		UserName: sess.Name,
		Today:    fields.Date,
	}
	if verr := core.AsValidation(cause); verr != nil {
		page.FieldErrors = verr.Fields
	} else if core.IsConflict(cause) {
		page.Error = "That contribution is still being saved. Give it a moment."
	} else {
		page.Error = "Could not save the contribution. Please try again."
	}

	scope := core.ScopeUser(sess.UserID)
	store := ledger.New(s.apiClient, scope, s.logger)
	if err := store.Load(r.Context()); err == nil {
		page.Total = store.Total()
		pageNo := store.ClampPage(scope, 1, s.cfg.PageSize)
		page.Records = store.Page(scope, pageNo, s.cfg.PageSize)
		page.Page = pageNo
		page.Pages = store.PageCount(scope, s.cfg.PageSize)
		page.ShowPager = page.Pages > 1
	}
	s.render(w, r, http.StatusUnprocessableEntity, "savings.html", page)
}

func pageParam(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 1
}

// amountParam parses a whole-unit amount; 0 on junk input, which fails
// validation downstream with a proper field message.
func amountParam(v string) int64 {
	v = strings.TrimSpace(v)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
