package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oogFranz/kintone-app-mcp/internal/audit"
	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
	"github.com/oogFranz/kintone-app-mcp/internal/mcp"
)

var serveSkipCheck bool

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kintone MCP server",
	Long: `Start the Kintone Model Context Protocol server to handle requests from
AI agents.

The server communicates over stdio (stdin/stdout) using the MCP protocol.
It requires a configuration file describing the Kintone app, its API token,
and the configured field schema.

Examples:
  # Start server with the default config.json
  kintone-app-mcp serve

  # Start server with a specific configuration
  kintone-app-mcp serve --config /etc/kintone/tasks.json`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Serve output must stay off stdout; that stream carries the protocol.
	serveCmd.SetOut(os.Stderr)
	serveCmd.SetErr(os.Stderr)

	serveCmd.Flags().BoolVar(&serveSkipCheck, "skip-connection-check", false, "start without probing the Kintone app first")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return fmt.Errorf("configuration file %q not found; create it from config.example.json", configFile)
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	verboseLog("configuration loaded for app %s on %s", cfg.Kintone.AppID, cfg.Kintone.Domain)

	logger, err := audit.NewLogger(audit.Config{
		FilePath: cfg.Logging.File,
		MaxSize:  10 * 1024 * 1024,
	})
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}
	defer logger.Close()

	client, err := kintone.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create kintone client: %w", err)
	}

	if !serveSkipCheck {
		probeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		info, err := client.GetAppInfo(probeCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to Kintone (check domain, app id, and token permissions): %w", err)
		}
		fmt.Fprintf(os.Stderr, "Connected to Kintone app: %s\n", info.Name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(client, cfg, logger, version)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
