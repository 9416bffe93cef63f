package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oogFranz/kintone-app-mcp/internal/crypto"
	"github.com/oogFranz/kintone-app-mcp/pkg/types"
)

// ErrConfigNotFound is returned when the config file is not found by Load.
var ErrConfigNotFound = errors.New("configuration file not found")

// PassphraseEnv names the environment variable holding the passphrase used
// to open an encrypted API token.
const PassphraseEnv = "KINTONE_MCP_PASSPHRASE"

var appIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Config is the full application configuration: the Kintone connection, the
// configured field schema, and server settings.
type Config struct {
	Kintone KintoneConfig       `mapstructure:"kintone"`
	Fields  []types.FieldConfig `mapstructure:"fields"`
	Server  ServerConfig        `mapstructure:"server"`
	Logging LoggingConfig       `mapstructure:"logging"`
}

// KintoneConfig is the connection configuration for one Kintone app.
type KintoneConfig struct {
	Domain            string   `mapstructure:"domain"` // host name, no scheme
	AppID             string   `mapstructure:"app_id"`
	APIToken          string   `mapstructure:"api_token"`
	APITokenEncrypted string   `mapstructure:"api_token_encrypted"`
	APIPermissions    []string `mapstructure:"api_permissions"`
	AppCode           string   `mapstructure:"app_code"`
	AppDescription    string   `mapstructure:"app_description"`
}

// ServerConfig holds MCP server settings.
type ServerConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"` // requests per minute
}

// LoggingConfig holds audit log settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultConfig returns a configuration with default server settings.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Timeout:   30 * time.Second,
			RateLimit: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a configuration file (JSON or YAML, by extension) and applies
// KINTONE_MCP_* environment overrides.
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = "config.json"
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
	}

	v := viper.New()
	v.SetConfigFile(configFile)

	v.SetEnvPrefix("KINTONE_MCP")
	v.AutomaticEnv()
	_ = v.BindEnv("kintone.domain", "KINTONE_MCP_DOMAIN")
	_ = v.BindEnv("kintone.app_id", "KINTONE_MCP_APP_ID")
	_ = v.BindEnv("kintone.api_token", "KINTONE_MCP_API_TOKEN")
	_ = v.BindEnv("logging.level", "KINTONE_MCP_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Logging.File == "" {
		config.Logging.File = defaultAuditLogPath()
	}
	return config, nil
}

func defaultAuditLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kintone-app-mcp-audit.log"
	}
	return filepath.Join(home, ".kintone-app-mcp", "audit.log")
}

// Validate checks the structural requirements of the configuration.
func (c *Config) Validate() error {
	k := c.Kintone
	if k.Domain == "" {
		return fmt.Errorf("kintone.domain is required")
	}
	if strings.Contains(k.Domain, "://") {
		return fmt.Errorf("kintone.domain must be a host name without a scheme: %q", k.Domain)
	}
	if k.AppID == "" {
		return fmt.Errorf("kintone.app_id is required")
	}
	if !appIDPattern.MatchString(k.AppID) {
		return fmt.Errorf("kintone.app_id must be numeric: %q", k.AppID)
	}
	if k.APIToken == "" && k.APITokenEncrypted == "" {
		return fmt.Errorf("kintone.api_token or kintone.api_token_encrypted is required")
	}

	for _, p := range k.APIPermissions {
		switch types.Permission(p) {
		case types.PermissionRecordRead, types.PermissionRecordCreate,
			types.PermissionRecordUpdate, types.PermissionRecordDelete:
		default:
			return fmt.Errorf("unknown api permission: %q", p)
		}
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.FieldCode == "" {
			return fmt.Errorf("field %q is missing a field_code", f.FieldName)
		}
		if seen[f.FieldCode] {
			return fmt.Errorf("duplicate field_code: %q", f.FieldCode)
		}
		seen[f.FieldCode] = true
		if f.FieldType == "" {
			return fmt.Errorf("field %q is missing a field_type", f.FieldCode)
		}
	}
	return nil
}

// BaseURL returns the API base URL for the configured domain.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s/k/v1", c.Kintone.Domain)
}

// ResolveToken returns the plaintext API token, opening the encrypted form
// with the passphrase from the environment when necessary. A plaintext
// api_token takes precedence.
func (c *Config) ResolveToken() (string, error) {
	if c.Kintone.APIToken != "" {
		return c.Kintone.APIToken, nil
	}
	passphrase := os.Getenv(PassphraseEnv)
	if passphrase == "" {
		return "", fmt.Errorf("api_token_encrypted is set but %s is not", PassphraseEnv)
	}
	token, err := crypto.OpenToken(c.Kintone.APITokenEncrypted, passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to open encrypted api token: %w", err)
	}
	return token, nil
}

// HasPermission reports whether the configuration advertises the given
// capability. Permissions here are advisory; the remote side is the
// authoritative enforcement point.
func (c *Config) HasPermission(p types.Permission) bool {
	for _, have := range c.Kintone.APIPermissions {
		if types.Permission(have) == p {
			return true
		}
	}
	return false
}

// FieldByCode returns the configured field with the given code.
func (c *Config) FieldByCode(code string) (types.FieldConfig, bool) {
	for _, f := range c.Fields {
		if f.FieldCode == code {
			return f, true
		}
	}
	return types.FieldConfig{}, false
}
