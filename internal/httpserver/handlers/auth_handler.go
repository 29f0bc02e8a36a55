package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"membercore/internal/auth"
	"membercore/internal/identity"
)

type loginReq struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func Login(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.UserName == "" || req.Password == "" {
			http.Error(w, "user_name and password required", http.StatusBadRequest)
			return
		}
		login, err := mgr.Authenticate(r.Context(), req.UserName, req.Password, true)
		if err != nil {
			lg.Errorw("authenticate failed", "user", req.UserName, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if login == nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		respondJSON(w, login)
	}
}

// Logout clears the client-held token. There is no server-side session; the
// response simply echoes the login shape with an emptied token field.
func Logout(mgr *identity.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := &identity.Login{UserName: auth.Subject(r.Context())}
		respondJSON(w, mgr.SignOut(login))
	}
}

func Me(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userName := auth.Subject(r.Context())
		user, err := mgr.GetUser(r.Context(), userName)
		if err != nil {
			lg.Errorw("get user failed", "user", userName, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		roles, err := mgr.GetRolesForUser(r.Context(), userName)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, map[string]any{
			"user_name":   user.UserName,
			"email":       user.Email,
			"is_approved": user.IsApproved,
			"roles":       roles,
			"last_login":  user.LastLoginDate,
		})
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func ChangePassword(mgr *identity.Manager, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.OldPassword == "" || req.NewPassword == "" {
			http.Error(w, "old_password and new_password required", http.StatusBadRequest)
			return
		}
		ok, err := mgr.ChangePassword(r.Context(), auth.Subject(r.Context()), req.OldPassword, req.NewPassword)
		if err != nil {
			lg.Errorw("change password failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		respondJSON(w, map[string]any{"changed": true})
	}
}
