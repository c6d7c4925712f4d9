package api

import (
	"net/http"

	"github.com/erazemk/ossms/internal/command"
	"github.com/erazemk/ossms/internal/model"
)

// UsersHandler handles user management endpoints.
type UsersHandler struct {
	Commands *command.Service
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Commands.ListUsers(r.Context())
	if err != nil {
		commandError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req command.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Commands.CreateUser(r.Context(), req)
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, u)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.Commands.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, u)
}

// Update handles PUT /api/users/{id}. A password field sets a new password.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req command.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = r.PathValue("id")

	u, err := h.Commands.UpdateUser(r.Context(), req)
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, u)
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == GetUser(r.Context()).ID {
		jsonError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	msg, err := h.Commands.DeleteUser(r.Context(), id)
	if err != nil {
		commandError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": msg})
}
