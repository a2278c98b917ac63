package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/mylist/internal/apperror"
	"github.com/sakif/mylist/internal/auth"
	"github.com/sakif/mylist/internal/model"
	"github.com/sakif/mylist/internal/service"
)

// AccountHandler serves sign-up, sign-in and the account page.
type AccountHandler struct {
	accounts *service.AccountService
	tokens   *auth.TokenService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, tokens *auth.TokenService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, tokens: tokens, logger: logger}
}

type registerRequest struct {
	service.Registration
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account, signs it in and sets the token cookie.
//
// HTTP: POST /api/account/register
// BODY: Registration fields plus "password" and "confirm".
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Registration, req.Password, req.Confirm)
	if err != nil {
		writeError(w, err)
		return
	}
	h.signedIn(w, user, http.StatusCreated)
}

// HandleLogin signs an existing account in and sets the token cookie.
//
// HTTP: POST /api/account/login
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.signedIn(w, user, http.StatusOK)
}

func (h *AccountHandler) signedIn(w http.ResponseWriter, user *model.User, status int) {
	token, err := h.tokens.Generate(user.Email)
	if err != nil {
		// The session switch already happened; the browser can still use
		// every route except account deletion.
		h.logger.Error("failed to issue token", slog.String("email", user.Email), slog.String("error", err.Error()))
	} else {
		auth.SetTokenCookie(w, token, h.tokens.TTL())
	}
	writeJSON(w, status, user.Profile())
}

// HandleLogout returns to guest mode and clears the cookie.
//
// HTTP: POST /api/account/logout
func (h *AccountHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	auth.ClearTokenCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleProfile returns the active identity for the navbar and account page.
//
// HTTP: GET /api/account
func (h *AccountHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.Profile())
}

// HandleDelete deletes the signed-in account. Without ?confirm=true nothing
// is deleted and the response says so.
//
// HTTP: DELETE /api/account?confirm=true   (behind auth.RequireAuth)
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := h.accounts.DeleteAccount(r.Context(), confirmed); err != nil {
		writeError(w, err)
		return
	}
	if confirmed {
		h.logger.Info("account deleted over HTTP", slog.String("email", email))
		auth.ClearTokenCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": confirmed})
}
