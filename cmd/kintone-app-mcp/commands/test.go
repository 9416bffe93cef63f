package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/internal/kintone"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the Kintone connection",
	Long: `Load the configuration, connect to the configured Kintone app, and print
a summary of what the server would expose. Useful for verifying a config
file and API token before wiring the server into an MCP client.`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Configuration: app %s on %s\n", cfg.Kintone.AppID, cfg.Kintone.Domain)
	fmt.Fprintf(os.Stderr, "Configured fields: %d\n", len(cfg.Fields))
	for _, f := range cfg.Fields {
		if _, err := kintone.Describe(f.FieldType); err != nil {
			fmt.Fprintf(os.Stderr, "  %-20s %-20s UNSUPPORTED TYPE\n", f.FieldCode, f.FieldType)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %-20s %-20s %s\n", f.FieldCode, f.FieldType, f.FieldName)
	}
	if len(cfg.Kintone.APIPermissions) > 0 {
		fmt.Fprintf(os.Stderr, "API permissions: %v\n", cfg.Kintone.APIPermissions)
	}

	client, err := kintone.NewClient(cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create kintone client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := client.GetAppInfo(ctx)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Connected to app %s: %s\n", info.AppID, info.Name)
	fmt.Fprintf(os.Stderr, "Remote schema has %d fields\n", len(info.Properties))
	return nil
}
