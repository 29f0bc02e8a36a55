package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"membercore/internal/auth"
	"membercore/internal/httpserver/handlers"
	"membercore/internal/identity"
	"membercore/internal/token"
)

func NewRouter(db *gorm.DB, mgr *identity.Manager, issuer *token.Issuer, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(mgr, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(issuer))
		protected.Get("/v1/me", handlers.Me(mgr, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(mgr))
		protected.Post("/v1/auth/password", handlers.ChangePassword(mgr, lg))
		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole("Administrator"))
			admin.Get("/v1/admin/users", handlers.ListUsersInRoles(mgr, lg))
			admin.Post("/v1/admin/users", handlers.CreateUser(mgr, lg))
			admin.Get("/v1/admin/users/{name}", handlers.GetUser(mgr, lg))
			admin.Patch("/v1/admin/users/{name}", handlers.UpdateUser(mgr, lg))
			admin.Delete("/v1/admin/users/{name}", handlers.DeleteUser(mgr, lg))
			admin.Post("/v1/admin/users/{name}/roles", handlers.AddUserRole(mgr, lg))
			admin.Delete("/v1/admin/users/{name}/roles/{role}", handlers.RemoveUserRole(mgr, lg))
			admin.Post("/v1/admin/users/{name}/password/reset", handlers.ResetUserPassword(mgr, lg))
			admin.Get("/v1/admin/users/{name}/membership", handlers.GetUserMembership(mgr, lg))
			admin.Post("/v1/admin/roles", handlers.CreateRole(mgr, lg))
			admin.Get("/v1/admin/roles/{name}", handlers.GetRole(mgr, lg))
			admin.Delete("/v1/admin/roles/{name}", handlers.DeleteRole(mgr, lg))
			admin.Get("/v1/logs", handlers.AuditLogs(db, lg))
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
