package bot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/subgate/core/config"
	coredatabase "github.com/m3rciful/subgate/core/database"
)

// GateConfig holds subscription-gate settings.
type GateConfig struct {
	// Channel is the gated channel: "@username" or a numeric chat id.
	Channel        string `yaml:"channel" envconfig:"GATE_CHANNEL"`
	OperatorChatID int64  `yaml:"operator_chat_id" envconfig:"GATE_OPERATOR_CHAT_ID"`
	// CheckTimeoutSeconds bounds a single membership lookup; 0 -> default.
	CheckTimeoutSeconds int `yaml:"check_timeout_seconds" envconfig:"GATE_CHECK_TIMEOUT_SECONDS"`
	// OperatorTimezone is the IANA zone used for the operator summary timestamp.
	OperatorTimezone string `yaml:"operator_timezone" envconfig:"GATE_OPERATOR_TIMEZONE"`
}

// Config aggregates core and bot-specific configuration.
type Config struct {
	Core     coreconfig.Config   `yaml:"core"`
	Gate     GateConfig          `yaml:"gate"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core configuration for the cmd runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// UseDatabase reports whether the optional contact journal is configured.
func (c *Config) UseDatabase() bool {
	return strings.TrimSpace(c.Database.Host) != ""
}

// ChannelLink returns the public https://t.me link of the gated channel, or
// an empty string for numeric (private) channel ids.
func (c *Config) ChannelLink() string {
	if name, ok := strings.CutPrefix(c.Gate.Channel, "@"); ok {
		return "https://t.me/" + name
	}
	return ""
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and applies defaults. The process must
// not start with a missing or malformed gate section.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	ch := strings.TrimSpace(cfg.Gate.Channel)
	if ch == "" {
		return fmt.Errorf("gate.channel is required")
	}
	if !strings.HasPrefix(ch, "@") && !isNumericChat(ch) {
		ch = "@" + ch
	}
	cfg.Gate.Channel = ch

	if cfg.Gate.OperatorChatID == 0 {
		return fmt.Errorf("gate.operator_chat_id is required")
	}
	if cfg.Gate.CheckTimeoutSeconds < 0 {
		return fmt.Errorf("gate.check_timeout_seconds must be >= 0")
	}
	if cfg.Gate.CheckTimeoutSeconds == 0 {
		cfg.Gate.CheckTimeoutSeconds = 5
	}

	tz := strings.TrimSpace(cfg.Gate.OperatorTimezone)
	if tz == "" {
		tz = "Europe/Moscow"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid gate.operator_timezone %q: %w", cfg.Gate.OperatorTimezone, err)
	}
	cfg.Gate.OperatorTimezone = tz

	return nil
}

func isNumericChat(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
