package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/broker"
	internalhttp "github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http"
	httpH "github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/http/handlers"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/keycloak"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/sendgrid"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/services"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/simulator"
	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/store"
)

type App struct {
	Log       *logger.Logger
	Cfg       Config
	Router    *gin.Engine
	Publisher broker.Publisher
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig()

	pub, err := broker.New(log, cfg.BrokerURL)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init broker: %w", err)
	}

	// Degraded operation is acceptable for the real side effects: account
	// and email flows soft-fail when their collaborator is unavailable.
	idp, err := keycloak.NewFromEnv(log)
	if err != nil {
		log.Warn("Keycloak client unavailable", "error", err)
		idp = nil
	}
	mail, err := sendgrid.NewFromEnv(log)
	if err != nil {
		log.Warn("SendGrid client unavailable", "error", err)
		mail = nil
	}
	tickets, err := store.NewTicketStore(log)
	if err != nil {
		log.Warn("Ticket store unavailable", "error", err)
		tickets = nil
	}

	blobs := simulator.NewBlobStore()

	gen := simulator.NewGenerator(cfg.DefaultScenario, cfg.SuccessRate)
	pipeline := simulator.NewPipeline(log, pub, gen, cfg.ResponseQueue, cfg.ResponseDelay)
	docs := simulator.NewDocumentProcessor(log, pub, blobs, cfg.DocumentStatusQueue, cfg.ResponseDelay)
	syncSim := simulator.NewSyncSimulator(log, pub, simulator.NewRegistry(), ticketSeeder(tickets), cfg.DataSourceStatusQueue)
	accounts := services.NewAccountService(log, idp, mail)
	dispatcher := services.NewDispatcher(log, gen, pipeline, docs, syncSim, accounts, ticketSeeder(tickets))

	router := internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:            log,
		WebhookHandler: httpH.NewWebhookHandler(dispatcher, cfg.WebhookSecret),
		HealthHandler:  httpH.NewHealthHandler(cfg.Echo()),
		FilesHandler:   httpH.NewFilesHandler(blobs),
	})

	return &App{
		Log:       log,
		Cfg:       cfg,
		Router:    router,
		Publisher: pub,
	}, nil
}

// ticketSeeder keeps a typed nil *TicketStore from leaking into the
// TicketSeeder interface as a non-nil value.
func ticketSeeder(ts *store.TicketStore) simulator.TicketSeeder {
	if ts == nil {
		return nil
	}
	return ts
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Publisher != nil {
		_ = a.Publisher.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
