package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cabinetquote/internal/ai"
	"cabinetquote/internal/cache"
	"cabinetquote/internal/chat"
	"cabinetquote/internal/config"
	"cabinetquote/internal/google"
	"cabinetquote/internal/knowledge"
	"cabinetquote/internal/platform/database"
	rabbitmqClient "cabinetquote/internal/platform/rabbitmq"
	redisClient "cabinetquote/internal/platform/redis"
	"cabinetquote/internal/rag"
	"cabinetquote/internal/repository"
	"cabinetquote/internal/worker"
)

// App owns every long-lived resource of the server. Optional pieces that
// fail to start are left nil and logged; only a bad config aborts startup.
type App struct {
	Config           *config.Config
	DB               *gorm.DB
	Redis            *redis.Client
	MQConn           *amqp.Connection
	TranscriptWorker *worker.TranscriptWorker

	Retriever  *rag.Retriever
	Session    *chat.Session
	Drafter    *google.Drafter
	MailStatus string

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	app := &App{Config: cfg, StartedAt: time.Now()}

	if err := app.initRetriever(); err != nil {
		return nil, err
	}
	app.initDatabase(ctx)
	app.initRedis(ctx)
	app.initRabbitMQ(ctx)
	if err := app.initSession(); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.initMail(ctx)
	return app, nil
}

func (a *App) initRetriever() error {
	embedder, err := NewEmbedder(a.Config)
	if err != nil {
		return err
	}
	kb, loadErr := knowledge.Load(a.Config.Knowledge.IndexPath, a.Config.Knowledge.CorpusPath)
	if loadErr != nil {
		log.Printf("warning: knowledge base unavailable, answering without examples: %v", loadErr)
	} else {
		log.Printf("knowledge base loaded: %d documents", kb.Len())
	}
	a.Retriever = rag.NewRetriever(embedder, kb, loadErr, a.Config.Knowledge.TopK)
	return nil
}

func (a *App) initDatabase(ctx context.Context) {
	if a.Config.Database.Driver == "" {
		return
	}
	db, err := database.Open(ctx, a.Config.Database.Driver, a.Config.MySQLDSN(), a.Config.Database.SQLitePath)
	if err != nil {
		log.Printf("warning: database disabled: %v", err)
		return
	}
	a.DB = db
}

func (a *App) initRedis(ctx context.Context) {
	if !a.Config.Redis.Enabled {
		return
	}
	client, err := redisClient.New(ctx, a.Config.Redis)
	if err != nil {
		log.Printf("warning: redis disabled, chat history kept in memory: %v", err)
		return
	}
	a.Redis = client
}

// initRabbitMQ needs the database: the worker is the queue's only consumer.
func (a *App) initRabbitMQ(ctx context.Context) {
	if !a.Config.RabbitMQ.Enabled {
		return
	}
	if a.DB == nil {
		log.Printf("warning: rabbitmq disabled, no database to persist transcripts into")
		return
	}
	queue := a.Config.RabbitMQ.MessagePersistQueue
	conn, err := rabbitmqClient.New(ctx, a.Config.RabbitMQ.URL, queue)
	if err != nil {
		log.Printf("warning: rabbitmq disabled: %v", err)
		return
	}
	w := worker.NewTranscriptWorker(conn, repository.NewMessageRepository(a.DB), queue)
	if err := w.Start(context.Background()); err != nil {
		log.Printf("warning: rabbitmq disabled, start transcript worker failed: %v", err)
		_ = conn.Close()
		return
	}
	a.MQConn = conn
	a.TranscriptWorker = w
}

func (a *App) initSession() error {
	systemPrompt, err := chat.LoadSystemPrompt(a.Config.LLM.SystemPromptFile)
	if err != nil {
		return err
	}
	llmCfg := ai.ChatConfig{
		BaseURL: a.Config.LLM.BaseURL,
		APIKey:  a.Config.LLM.APIKey,
		Model:   a.Config.LLM.Model,
	}
	if !llmCfg.Valid() {
		log.Printf("warning: chat model is not fully configured, every turn will fail until GOOGLE_API_KEY is set")
	}

	var store chat.HistoryStore = chat.NewMemoryStore()
	if a.Redis != nil {
		store = cache.NewHistoryCache(a.Redis, time.Duration(a.Config.Redis.HistoryTTLSeconds)*time.Second)
	}
	a.Session = chat.NewSession(ai.NewOpenAICompatibleClient(), llmCfg, chat.Options{
		Key:          a.Config.Chat.SessionKey,
		SystemPrompt: systemPrompt,
		MaxContext:   a.Config.LLM.MaxContextMessage,
		Store:        store,
	})
	return nil
}

func (a *App) initMail(ctx context.Context) {
	ts, source, err := GoogleTokenSource(ctx, a.Config)
	if err != nil {
		a.MailStatus = err.Error()
		log.Printf("warning: gmail drafts disabled: %v", err)
		return
	}
	drafter, err := google.NewDrafter(ctx, ts)
	if err != nil {
		a.MailStatus = err.Error()
		log.Printf("warning: gmail drafts disabled: %v", err)
		return
	}
	a.Drafter = drafter
	a.MailStatus = "connected via " + source
	log.Printf("gmail drafts enabled (%s)", source)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.TranscriptWorker != nil {
		a.TranscriptWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			closeErr = err
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
