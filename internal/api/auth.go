package api

import (
	"net/http"

	"github.com/erazemk/ossms/internal/command"
)

// AuthHandler handles session and password endpoints.
type AuthHandler struct {
	Commands *command.Service
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req command.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := h.Commands.Login(r.Context(), req)
	if !resp.Success {
		jsonResponse(w, http.StatusUnauthorized, resp)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)
	result(w, h.Commands.Logout(r.Context(), token))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := GetUser(r.Context()).Scrubbed()
	jsonResponse(w, http.StatusOK, u)
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result(w, h.Commands.ChangePassword(r.Context(), command.ChangePasswordRequest{
		UserID:          GetUser(r.Context()).ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}))
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req command.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result(w, h.Commands.ForgotPassword(r.Context(), req))
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req command.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result(w, h.Commands.ResetPassword(r.Context(), req))
}

// Version handles GET /api/version.
func (h *AuthHandler) Version(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Commands.Version())
}
