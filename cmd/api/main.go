package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"membercore/internal/config"
	"membercore/internal/httpserver"
	"membercore/internal/identity"
	"membercore/internal/logger"
	"membercore/internal/models"
	"membercore/internal/token"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()

	cfg, err := config.Load()
	if err != nil {
		lg.Fatalw("config load failed", "error", err)
	}
	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Application{},
		&models.UserAccount{},
		&models.Membership{},
		&models.Role{},
		&models.RoleMembership{},
		&models.Profile{},
		&models.AuditLog{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	issuer := token.NewIssuer(cfg)
	mgr := identity.NewManager(db, cfg, issuer, lg)

	seed(db, cfg, mgr, lg)

	router := httpserver.NewRouter(db, mgr, issuer, lg)
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		log.Fatal(err)
	}
}

// seed makes sure the tenant application row, the built-in roles and a
// default approved administrator exist before the first request comes in.
func seed(db *gorm.DB, cfg *config.Config, mgr *identity.Manager, lg *zap.SugaredLogger) {
	ctx := context.Background()

	app := models.Application{
		ApplicationID:          cfg.ApplicationID,
		ApplicationName:        "membercore",
		LoweredApplicationName: "membercore",
	}
	_ = db.Where("application_id = ?", cfg.ApplicationID).FirstOrCreate(&app).Error

	for _, name := range []string{"Administrator", "User"} {
		existing, err := mgr.Roles().FindByName(ctx, name)
		if err != nil || existing != nil {
			continue
		}
		role := identity.NewRole(name)
		role.ApplicationID = cfg.ApplicationID
		if err := mgr.Roles().Create(ctx, role); err != nil {
			lg.Warnw("seed role failed", "role", name, "error", err)
		}
	}

	adminName := "admin"
	if existing, err := mgr.GetUser(ctx, adminName); err != nil || existing != nil {
		return
	}
	admin, err := mgr.RegisterUser(ctx, adminName, "admin@membercore.local", "ChangeMe!1", true)
	if err != nil {
		lg.Warnw("seed admin failed", "error", err)
		return
	}
	if err := mgr.Users().AddToRole(ctx, admin, "Administrator"); err != nil {
		lg.Warnw("seed admin role failed", "error", err)
	}
	lg.Infow("seeded default admin", "user", adminName)
}
