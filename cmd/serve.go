package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/openagentic/a2a-core/pkg/a2a"
	"github.com/openagentic/a2a-core/pkg/handler"
	"github.com/openagentic/a2a-core/pkg/service"
	"github.com/openagentic/a2a-core/pkg/stores"
	redisstore "github.com/openagentic/a2a-core/pkg/stores/redis"
)

var (
	portFlag     int
	hostFlag     string
	agentKeyFlag string
	backendFlag  string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve an A2A agent",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore()

			if err != nil {
				return err
			}

			card := a2a.NewAgentCardFromConfig(agentKeyFlag)

			srv := service.NewA2AServer(
				*card,
				store,
				handler.EchoHandler{},
				orchestratorConfig(),
			)

			return run(srv, fmt.Sprintf("%s:%d", hostFlag, portFlag))
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&portFlag, "port", "p", 3210, "Port to serve on")
	serveCmd.Flags().StringVarP(&hostFlag, "host", "H", "0.0.0.0", "Host address to bind to")
	serveCmd.Flags().StringVarP(&agentKeyFlag, "agent", "a", "echo", "Agent config key to serve")
	serveCmd.Flags().StringVar(&backendFlag, "store", "", "Store backend (memory or redis), overrides config")
}

// run serves until the listener fails or a termination signal arrives,
// then drains in-flight requests through fiber's shutdown.
func run(srv *service.A2AServer, addr string) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return srv.Start(addr)
	})

	group.Go(func() error {
		select {
		case sig := <-quit:
			log.Info("shutting down", "signal", sig)
			return srv.Shutdown()
		case <-ctx.Done():
			return nil
		}
	})

	return group.Wait()
}

// buildStore selects the persistence backend from flags and config.
func buildStore() (stores.TaskStore, error) {
	backend := backendFlag

	if backend == "" {
		backend = viper.GetString("store.backend")
	}

	switch backend {
	case "", "memory":
		return stores.NewInMemoryTaskStore(), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr: viper.GetString("store.redis.addr"),
		})

		return redisstore.NewTaskStore(client, viper.GetString("store.redis.prefix")), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func orchestratorConfig() service.Config {
	config := service.DefaultConfig()

	if viper.IsSet("orchestrator.auto_persist_events") {
		config.AutoPersistEvents = viper.GetBool("orchestrator.auto_persist_events")
	}

	if viper.IsSet("orchestrator.auto_append_history") {
		config.AutoAppendHistory = viper.GetBool("orchestrator.auto_append_history")
	}

	if capacity := viper.GetInt("orchestrator.queue_capacity"); capacity > 0 {
		config.QueueCapacity = capacity
	}

	return config
}

var longServe = `
Serve an A2A agent over JSON-RPC, REST and SSE.

Examples:
  # Serve the echo agent on port 8080
  a2a-core serve --port 8080

  # Serve with the redis store backend
  a2a-core serve --store redis
`
