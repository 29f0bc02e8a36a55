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

type createRoleReq struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func CreateRole(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		role := identity.NewRole(req.Name)
		role.ApplicationID = mgr.Roles().ApplicationID()
		role.Description = req.Description
		if err := mgr.Roles().Create(r.Context(), role); err != nil {
			if errors.Is(err, identity.ErrDuplicateName) {
				http.Error(w, "role name already taken", http.StatusConflict)
				return
			}
			lg.Errorw("create role failed", "role", req.Name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"role_id": role.ID, "name": role.Name})
	}
}

func GetRole(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := mgr.Roles().FindByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if role == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		respondJSON(w, map[string]any{
			"role_id":     role.ID,
			"name":        role.Name,
			"description": role.Description,
		})
	}
}

// DeleteRole removes the role and every membership pointing at it.
func DeleteRole(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, err := mgr.Roles().FindByName(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if role == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err := mgr.Roles().Delete(r.Context(), role); err != nil {
			lg.Errorw("delete role failed", "role", role.Name, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
