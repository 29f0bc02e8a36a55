package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"membercore/internal/identity"
)

// ListUsersInRoles returns the de-duplicated union of users in the roles
// named by the ?roles= query parameter (comma separated).
func ListUsersInRoles(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var roles []string
		if q := strings.TrimSpace(r.URL.Query().Get("roles")); q != "" {
			roles = strings.Split(q, ",")
		}
		users, err := mgr.GetAllUsersInRoles(r.Context(), roles)
		if err != nil {
			lg.Errorw("list users failed", "roles", roles, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, map[string]any{
				"user_id":       u.ID,
				"user_name":     u.UserName,
				"email":         u.Email,
				"is_approved":   u.IsApproved,
				"is_locked_out": u.IsLockedOut,
			})
		}
		respondJSON(w, out)
	}
}

type createUserReq struct {
	UserName string   `json:"user_name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Approved bool     `json:"approved"`
	Roles    []string `json:"roles,omitempty"`
}

func CreateUser(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.UserName) == "" || req.Password == "" {
			http.Error(w, "user_name and password required", http.StatusBadRequest)
			return
		}
		user, err := mgr.RegisterUser(r.Context(), req.UserName, req.Email, req.Password, req.Approved)
		if err != nil {
			if errors.Is(err, identity.ErrDuplicateName) {
				http.Error(w, "user name already taken", http.StatusConflict)
				return
			}
			lg.Errorw("create user failed", "user", req.UserName, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		for _, role := range req.Roles {
			if err := mgr.Users().AddToRole(r.Context(), user, role); err != nil {
				lg.Warnw("assign role failed", "user", req.UserName, "role", role, "error", err)
			}
		}
		respondJSON(w, map[string]any{"user_id": user.ID, "user_name": user.UserName})
	}
}

func GetUser(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := mgr.GetUser(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		roles, _ := mgr.GetRolesForUser(r.Context(), user.UserName)
		respondJSON(w, map[string]any{
			"user_id":       user.ID,
			"user_name":     user.UserName,
			"email":         user.Email,
			"is_approved":   user.IsApproved,
			"is_locked_out": user.IsLockedOut,
			"comment":       user.Comment,
			"roles":         roles,
		})
	}
}

type updateUserReq struct {
	Email       *string `json:"email,omitempty"`
	IsApproved  *bool   `json:"is_approved,omitempty"`
	IsLockedOut *bool   `json:"is_locked_out,omitempty"`
	Comment     *string `json:"comment,omitempty"`
}

func UpdateUser(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, err := mgr.GetUser(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if req.Email != nil {
			user.SetEmail(*req.Email)
		}
		if req.IsApproved != nil {
			user.IsApproved = *req.IsApproved
		}
		if req.IsLockedOut != nil {
			user.IsLockedOut = *req.IsLockedOut
		}
		if req.Comment != nil {
			user.Comment = *req.Comment
		}
		if err := mgr.UpdateUser(r.Context(), user); err != nil {
			lg.Errorw("update user failed", "user", user.UserName, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}

func DeleteUser(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := mgr.GetUser(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := mgr.Users().Delete(r.Context(), user); err != nil {
			lg.Errorw("delete user failed", "user", user.UserName, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}

func AddUserRole(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		user, err := mgr.GetUser(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := mgr.Users().AddToRole(r.Context(), user, req.Role); err != nil {
			if errors.Is(err, identity.ErrRoleNotFound) {
				http.Error(w, "role not found", http.StatusNotFound)
				return
			}
			lg.Errorw("add role failed", "user", user.UserName, "role", req.Role, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"ok": true})
	}
}

func RemoveUserRole(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := mgr.GetUser(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		role := chi.URLParam(r, "role")
		if err := mgr.Users().RemoveFromRole(r.Context(), user, role); err != nil {
			if errors.Is(err, identity.ErrRoleNotFound) {
				http.Error(w, "role not found", http.StatusNotFound)
				return
			}
			lg.Errorw("remove role failed", "user", user.UserName, "role", role, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"ok": true})
	}
}

// ResetUserPassword generates a fresh policy-compliant password for the user
// and returns the plaintext once; it is never retrievable again.
func ResetUserPassword(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		password, err := mgr.ResetPassword(r.Context(), name)
		if err != nil {
			lg.Errorw("reset password failed", "user", name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if password == "" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]any{"password": password})
	}
}

// GetUserMembership exposes the raw legacy membership row for diagnostics.
func GetUserMembership(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		membership, err := mgr.GetMembership(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if membership == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, membership)
	}
}
