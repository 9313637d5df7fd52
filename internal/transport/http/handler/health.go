package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cabinetquote/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check answers 503 only when a configured dependency is down. A missing
// knowledge base or mail connection only marks the status "degraded".
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	knowledgeStatus := h.checkKnowledge()
	mailStatus := h.checkMail()
	databaseStatus := h.checkDatabase(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()

	statusCode := http.StatusOK
	for _, s := range []dependencyStatus{databaseStatus, redisStatus, rmqStatus} {
		if s.Enabled && !s.OK {
			statusCode = http.StatusServiceUnavailable
		}
	}
	status := "ok"
	if statusCode != http.StatusOK || !knowledgeStatus.OK || !mailStatus.OK {
		status = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"status":     status,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": gin.H{
			"knowledge": knowledgeStatus,
			"mail":      mailStatus,
			"database":  databaseStatus,
			"redis":     redisStatus,
			"rabbitmq":  rmqStatus,
		},
	})
}

func (h *HealthHandler) checkKnowledge() dependencyStatus {
	if h.app.Retriever == nil {
		return dependencyStatus{Enabled: true, Message: "retriever not initialized"}
	}
	return dependencyStatus{OK: h.app.Retriever.Available(), Enabled: true, Message: h.app.Retriever.Status()}
}

func (h *HealthHandler) checkMail() dependencyStatus {
	if h.app.Drafter == nil {
		return dependencyStatus{Enabled: true, Message: h.app.MailStatus}
	}
	return dependencyStatus{OK: true, Enabled: true, Message: h.app.MailStatus}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) dependencyStatus {
	if h.app.Config.Database.Driver == "" {
		return dependencyStatus{Message: "disabled"}
	}
	if h.app.DB == nil {
		return dependencyStatus{Enabled: true, Message: "not connected"}
	}
	sqlDB, err := h.app.DB.DB()
	if err != nil {
		return dependencyStatus{Enabled: true, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{Enabled: true, Message: err.Error()}
	}
	return dependencyStatus{OK: true, Enabled: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if !h.app.Config.Redis.Enabled {
		return dependencyStatus{Message: "disabled"}
	}
	if h.app.Redis == nil {
		return dependencyStatus{Enabled: true, Message: "not connected"}
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{Enabled: true, Message: err.Error()}
	}
	return dependencyStatus{OK: true, Enabled: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if !h.app.Config.RabbitMQ.Enabled {
		return dependencyStatus{Message: "disabled"}
	}
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{Enabled: true, Message: "connection closed"}
	}
	return dependencyStatus{OK: true, Enabled: true}
}
