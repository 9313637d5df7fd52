package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	appsvc "cabinetquote/internal/app"
	"cabinetquote/internal/bootstrap"
	"cabinetquote/internal/platform/rabbitmq"
	"cabinetquote/internal/repository"
	"cabinetquote/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(corsMiddleware(app.Config.App.CORSOrigins))

	var (
		transcripts appsvc.TranscriptPublisher
		history     appsvc.TranscriptLog
		draftStore  appsvc.DraftStore
		drafter     appsvc.Drafter
	)
	switch {
	case app.MQConn != nil:
		transcripts = rabbitmq.NewTranscriptPublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)
	case app.DB != nil:
		transcripts = appsvc.NewDirectTranscript(repository.NewMessageRepository(app.DB))
	}
	if app.DB != nil {
		history = repository.NewMessageRepository(app.DB)
		draftStore = repository.NewDraftRepository(app.DB)
	}
	if app.Drafter != nil {
		drafter = app.Drafter
	}

	chatService := appsvc.NewChatService(app.Retriever, app.Session, transcripts, history)
	draftService := appsvc.NewDraftService(drafter, draftStore, appsvc.MailDefaults{
		From:    app.Config.Mail.From,
		To:      app.Config.Mail.To,
		CC:      app.Config.Mail.CC,
		Subject: app.Config.Mail.Subject,
	}, app.MailStatus)

	Register(router, handler.NewHealthHandler(app), handler.NewChatHandler(chatService), handler.NewDraftHandler(draftService))
	return router
}

// Register mounts the routes on an existing engine.
func Register(router *gin.Engine, health *handler.HealthHandler, chat *handler.ChatHandler, drafts *handler.DraftHandler) {
	router.GET("/healthz", health.Check)

	router.POST("/chat", chat.Send)
	router.POST("/chat/stream", chat.Stream)
	router.POST("/chat/reset", chat.Reset)
	router.GET("/chat/history", chat.History)

	router.POST("/create_draft", drafts.Create)
	router.GET("/drafts", drafts.List)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
