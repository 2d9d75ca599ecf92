package http

import (
	"net/http"
	"strings"

	"pocketgrow/internal/core"
	"pocketgrow/internal/log"
)

type authPage struct {
	Email       string
	Name        string
	FieldErrors map[string]string
	Error       string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFromRequest(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", authPage{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", authPage{Error: "Invalid request"})
		return
	}
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	token, user, err := s.apiClient.Login(r.Context(), email, password)
	if err != nil {
		page := authPage{Email: email}
		status := http.StatusUnprocessableEntity
		if verr := core.AsValidation(err); verr != nil {
			page.FieldErrors = verr.Fields
		} else {
			page.Error = "Login failed. Check your credentials and try again."
			status = http.StatusUnauthorized
		}
		s.render(w, r, status, "login.html", page)
		return
	}

	s.logger.InfoContext(r.Context(), "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID)

	setSessionCookie(w, token, user)
	if user.Role == core.RoleAdmin {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/my-savings", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authPage{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", authPage{Error: "Invalid request"})
		return
	}
	name := strings.TrimSpace(r.Form.Get("name"))
	email := strings.TrimSpace(r.Form.Get("email"))
	password := r.Form.Get("password")

	if _, err := s.apiClient.Register(r.Context(), name, email, password); err != nil {
		page := authPage{Name: name, Email: email}
		status := http.StatusUnprocessableEntity
		if verr := core.AsValidation(err); verr != nil {
			page.FieldErrors = verr.Fields
		} else {
			page.Error = "Registration failed. Please try again."
			status = http.StatusBadGateway
		}
		s.render(w, r, status, "register.html", page)
		return
	}

	s.logger.InfoContext(r.Context(), "User registered",
		log.FieldOperation, log.OpRegister)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
