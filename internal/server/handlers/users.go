package handlers

import (
	"errors"
	"net/http"

	"github.com/svckit/svckit/internal/core"
	apperrors "github.com/svckit/svckit/internal/errors"
	"github.com/svckit/svckit/internal/store"
)

// Users implements the user CRUD endpoints.
type Users struct {
	store *store.Store
}

// NewUsers creates the user handler set.
func NewUsers(s *store.Store) *Users {
	return &Users{store: s}
}

// CreateUserRequest is the POST /user payload.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=128"`
	NickName string `json:"nick_name" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// UpdateUserRequest is the PUT /user/{id} payload. Empty fields are left
// unchanged.
type UpdateUserRequest struct {
	Name     string `json:"name" validate:"omitempty,min=1,max=128"`
	NickName string `json:"nick_name" validate:"omitempty,min=1,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// UserListResponse wraps a user page.
type UserListResponse struct {
	Items []core.User `json:"items"`
	Page  core.Page   `json:"page"`
}

func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), core.User{
		Name:     req.Name,
		NickName: req.NickName,
		Email:    req.Email,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, apperrors.NewConflict("Nick name already exists"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("User not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Users) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	search := r.URL.Query().Get("search")

	users, total, err := h.store.ListUsers(r.Context(), page, pageSize, search)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListResponse{
		Items: users,
		Page:  core.Page{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *Users) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), id, req.Name, req.NickName, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("User not found"))
			return
		}
		if errors.Is(err, store.ErrConflict) {
			writeError(w, apperrors.NewConflict("Nick name already exists"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Users) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, apperrors.NewNotFound("User not found"))
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}
