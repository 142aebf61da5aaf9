package service

import (
	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	fiberadaptor "github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/handler"
	"github.com/openagentic/a2a-core/pkg/metrics"
	"github.com/openagentic/a2a-core/pkg/stores"
)

/*
A2AServer binds the orchestrator to its two HTTP surfaces.  It is safe
for concurrent use because the orchestrator and the stores are.
*/
type A2AServer struct {
	app          *fiber.App
	orchestrator *Orchestrator
	card         a2a.AgentCard
	extendedCard *a2a.AgentCard
	push         *PushConfigStore
}

// Option customizes server construction.
type Option func(*A2AServer)

// WithExtendedCard enables agent/getAuthenticatedExtendedCard.
func WithExtendedCard(card *a2a.AgentCard) Option {
	return func(srv *A2AServer) {
		srv.extendedCard = card
	}
}

func NewA2AServer(card a2a.AgentCard, store stores.TaskStore, agent handler.AgentHandler, config Config, opts ...Option) *A2AServer {
	srv := &A2AServer{
		app: fiber.New(fiber.Config{
			AppName:           card.Name,
			ServerHeader:      "A2A-Agent-Server",
			StreamRequestBody: true,
		}),
		orchestrator: NewOrchestrator(store, agent, config),
		card:         card,
		push:         NewPushConfigStore(card.Capabilities.PushNotifications),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

// NewA2AServerWithDefaults wires an echo handler over an in-memory store.
// Great for smoke tests.
func NewA2AServerWithDefaults(url string) *A2AServer {
	card := a2a.AgentCard{
		Name:    "Echo Agent",
		URL:     url,
		Version: "0.1.0",
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		Skills: []a2a.AgentSkill{{ID: "echo", Name: "Echo"}},
	}

	return NewA2AServer(card, stores.NewInMemoryTaskStore(), handler.EchoHandler{}, DefaultConfig())
}

func (srv *A2AServer) registerRoutes() {
	srv.app.Use(logger.New(logger.Config{
		// Skip logging for streaming endpoints to reduce noise
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/v1/message:stream"
		},
	}), healthcheck.NewHealthChecker())

	srv.app.Get("/.well-known/agent.json", srv.handleRestCard)
	srv.app.Get("/metrics", fiberadaptor.HTTPHandler(metrics.Handler()))
	srv.app.Post("/rpc", srv.handleRPC)

	srv.app.Get("/v1/card", srv.handleRestCard)
	srv.app.Get("/v1/tasks", srv.handleRestListTasks)
	srv.app.Get("/v1/tasks/:id", srv.handleRestGetTask)
	srv.app.Post("/v1/tasks/:id\\:cancel", srv.handleRestCancelTask)
	srv.app.Post("/v1/message\\:send", srv.handleRestSendMessage)
	srv.app.Post("/v1/message\\:stream", srv.handleRestStreamMessage)

	srv.app.Get("/v1/tasks/:id/pushNotificationConfigs", srv.handleRestListPushConfigs)
	srv.app.Post("/v1/tasks/:id/pushNotificationConfigs", srv.handleRestSetPushConfig)
	srv.app.Get("/v1/tasks/:id/pushNotificationConfigs/:configId", srv.handleRestGetPushConfig)
	srv.app.Delete("/v1/tasks/:id/pushNotificationConfigs/:configId", srv.handleRestDeletePushConfig)
}

// App exposes the fiber application, primarily for tests.
func (srv *A2AServer) App() *fiber.App {
	return srv.app
}

// Start serves until the listener fails or Shutdown is called.
func (srv *A2AServer) Start(addr string) error {
	log.Info("starting server", "addr", addr, "agent", srv.card.Name)

	return srv.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown gracefully stops the server.
func (srv *A2AServer) Shutdown() error {
	return srv.app.Shutdown()
}
