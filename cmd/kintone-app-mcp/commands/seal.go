package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oogFranz/kintone-app-mcp/internal/config"
	"github.com/oogFranz/kintone-app-mcp/internal/crypto"
)

// sealTokenCmd represents the seal-token command
var sealTokenCmd = &cobra.Command{
	Use:   "seal-token",
	Short: "Encrypt an API token for storage in a config file",
	Long: `Read a Kintone API token from stdin and print its encrypted form.

The passphrase is taken from the ` + config.PassphraseEnv + ` environment
variable. Put the printed value into the config file as
kintone.api_token_encrypted instead of a plaintext kintone.api_token; the
server opens it with the same environment variable at startup.`,
	RunE: runSealToken,
}

func init() {
	rootCmd.AddCommand(sealTokenCmd)
}

func runSealToken(cmd *cobra.Command, args []string) error {
	passphrase := os.Getenv(config.PassphraseEnv)
	if passphrase == "" {
		return fmt.Errorf("%s is not set", config.PassphraseEnv)
	}

	fmt.Fprint(os.Stderr, "API token: ")
	reader := bufio.NewReader(os.Stdin)
	token, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	sealed, err := crypto.SealToken(token, passphrase)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	fmt.Fprintln(os.Stdout, sealed)
	return nil
}
