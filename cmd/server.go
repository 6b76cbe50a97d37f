package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/form-relay/internal/audit"
	"github.com/ziadkadry99/form-relay/internal/config"
	"github.com/ziadkadry99/form-relay/internal/db"
	"github.com/ziadkadry99/form-relay/internal/relay"
	"github.com/ziadkadry99/form-relay/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the relay HTTP server",
	Long:  `Starts the relay: the form webhook, the Slack interaction callback, the Slack events endpoint and, when enabled, the delivery audit API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		logger := newLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := relay.NewSlackClient(relay.ClientOptions{
			BotToken: cfg.Slack.BotToken,
			AppToken: cfg.Slack.AppToken,
			APIURL:   cfg.Slack.APIURL,
			Timeout:  cfg.SlackTimeout(),
			Debug:    cfg.Slack.Debug,
		})
		slackPoster := relay.NewSlackPoster(api)

		// Resolve the bot identity once; the mirror compares every event against it.
		authCtx, cancel := context.WithTimeout(ctx, cfg.SlackTimeout())
		botID, err := relay.ResolveBotIdentity(authCtx, slackPoster)
		cancel()
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		}, logger)

		var poster relay.Poster = slackPoster
		var auditPath string
		if cfg.Audit.Enabled {
			database, err := db.Open(cfg.Audit.Path)
			if err != nil {
				return fmt.Errorf("opening audit database: %w", err)
			}
			defer database.Close()
			auditPath = database.Path()

			store := audit.NewStore(database)
			poster = relay.NewAuditedPoster(slackPoster, store, logger)
			audit.RegisterRoutes(srv.Router(), store)

			if retention := cfg.AuditRetention(); retention > 0 {
				pruner, err := audit.NewPruner(store, cfg.Audit.PruneSchedule, retention, logger)
				if err != nil {
					return err
				}
				go pruner.Run(ctx)
			}
		}

		registerRelayRoutes(ctx, srv, cfg, api, poster, botID, logger)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "formrelay server %s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Bot user: %s\n", botID)
		fmt.Fprintf(os.Stderr, "  Approval channel: %s\n", cfg.Channels.Approval)
		fmt.Fprintf(os.Stderr, "  Decision channel: %s\n", cfg.Channels.Decision)
		fmt.Fprintf(os.Stderr, "  Events: %s\n", cfg.Events.Mode)
		if auditPath != "" {
			fmt.Fprintf(os.Stderr, "  Audit database: %s\n", auditPath)
		}

		return srv.Start()
	},
}

// registerRelayRoutes wires the relay handlers onto the server and starts
// the socket mode listener when configured.
func registerRelayRoutes(ctx context.Context, srv *server.Server, cfg *config.Config, api *slack.Client, poster relay.Poster, botID string, logger *slog.Logger) {
	ingress := relay.NewIngress(poster, relay.IngressConfig{
		Channel:   cfg.Channels.Approval,
		AcceptURL: cfg.Callbacks.AcceptURL,
		RejectURL: cfg.Callbacks.RejectURL,
	}, logger)
	interactions := relay.NewInteractions(poster, cfg.Channels.Decision, logger)

	var messages relay.MessageHandler
	if cfg.Mirror.Enabled {
		messages = relay.NewMirror(poster, botID, cfg.Mirror.Channels, logger)
	}
	if cfg.Slack.SigningSecret == "" {
		logger.Warn("slack.signing_secret is empty; /slack/events accepts unsigned requests")
	}
	events := relay.NewEventsHandler(messages, cfg.Slack.SigningSecret, logger)

	relay.RegisterRoutes(srv.Router(), ingress, interactions, events)

	if cfg.Events.Mode == config.EventsSocket {
		listener := relay.NewSocketListener(api, events, interactions, cfg.Slack.Debug, logger)
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("slack socket mode stopped", "error", err)
			}
		}()
	}
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 5000, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
