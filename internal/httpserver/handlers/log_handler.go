package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"membercore/internal/models"
)

// AuditLogs returns the most recent authentication events.
func AuditLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var logs []models.AuditLog
		if err := db.WithContext(r.Context()).
			Order("created_at desc").Limit(200).Find(&logs).Error; err != nil {
			lg.Errorw("audit log query failed", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		respondJSON(w, logs)
	}
}
