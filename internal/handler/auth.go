package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/sessions"

	"ecoscanner/internal/logger"
	"ecoscanner/internal/middleware"
	"ecoscanner/internal/service/account"
)

// SignupHandler handles POST /auth/signup with form fields username, password
// and email.
func SignupHandler(accounts *account.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		username := account.NormalizeUsername(r.FormValue("username"))
		created, err := accounts.CreateUser(r.Context(), username, r.FormValue("password"), r.FormValue("email"))
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			logger.Error("Signup for %q failed: %v", username, err)
			writeError(w, logger, http.StatusServiceUnavailable, "could not create account, try again later")
			return
		}
		if !created {
			writeError(w, logger, http.StatusConflict, "username already exists")
			return
		}

		logger.Info("Created account %q", username)
		writeJSON(w, logger, http.StatusCreated, map[string]string{"username": username})
	}
}

// LoginHandler handles POST /auth/login by verifying credentials and issuing a
// session cookie.
func LoginHandler(accounts *account.Service, store sessions.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		username := account.NormalizeUsername(r.FormValue("username"))
		ok, err := accounts.VerifyUser(r.Context(), username, r.FormValue("password"))
		if err != nil {
			logger.Error("Login lookup for %q failed: %v", username, err)
			writeError(w, logger, http.StatusServiceUnavailable, "login unavailable, try again later")
			return
		}
		if !ok {
			logger.Warning("Failed login for %q", username)
			writeError(w, logger, http.StatusUnauthorized, "invalid username or password")
			return
		}

		if err := middleware.StartSession(w, r, store, username); err != nil {
			logger.Error("%v", err)
			writeError(w, logger, http.StatusInternalServerError, "could not start session")
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"username": username})
	}
}

// LogoutHandler handles POST /auth/logout by clearing the session cookie.
func LogoutHandler(store sessions.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		if err := middleware.EndSession(w, r, store); err != nil {
			logger.Error("%v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
