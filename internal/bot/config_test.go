package bot

import (
	"strings"
	"testing"

	coreconfig "github.com/m3rciful/subgate/core/config"
)

func validConfig() *Config {
	return &Config{
		Core: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "123:abc"},
		},
		Gate: GateConfig{
			Channel:        "@gate_channel",
			OperatorChatID: 900,
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Gate.CheckTimeoutSeconds != 5 {
		t.Fatalf("check timeout = %d, expected default 5", cfg.Gate.CheckTimeoutSeconds)
	}
	if cfg.Gate.OperatorTimezone != "Europe/Moscow" {
		t.Fatalf("timezone = %q, expected default Europe/Moscow", cfg.Gate.OperatorTimezone)
	}
}

func TestNormalizeAddsChannelPrefix(t *testing.T) {
	cfg := validConfig()
	cfg.Gate.Channel = "gate_channel"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Gate.Channel != "@gate_channel" {
		t.Fatalf("channel = %q", cfg.Gate.Channel)
	}
}

func TestNormalizeKeepsNumericChannel(t *testing.T) {
	cfg := validConfig()
	cfg.Gate.Channel = "-1001234567890"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Gate.Channel != "-1001234567890" {
		t.Fatalf("channel = %q, numeric ids must stay untouched", cfg.Gate.Channel)
	}
}

func TestNormalizeRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"channel", func(c *Config) { c.Gate.Channel = " " }, "gate.channel"},
		{"operator", func(c *Config) { c.Gate.OperatorChatID = 0 }, "operator_chat_id"},
		{"timeout", func(c *Config) { c.Gate.CheckTimeoutSeconds = -1 }, "check_timeout_seconds"},
		{"timezone", func(c *Config) { c.Gate.OperatorTimezone = "Mars/Olympus" }, "operator_timezone"},
		{"token", func(c *Config) { c.Core.Telegram.Token = "" }, "token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, expected to mention %s", err, tc.wantErr)
			}
		})
	}
}

func TestChannelLink(t *testing.T) {
	cfg := validConfig()
	if got := cfg.ChannelLink(); got != "https://t.me/gate_channel" {
		t.Fatalf("link = %q", got)
	}

	cfg.Gate.Channel = "-1001234567890"
	if got := cfg.ChannelLink(); got != "" {
		t.Fatalf("link for numeric channel = %q, expected empty", got)
	}
}

func TestUseDatabase(t *testing.T) {
	cfg := validConfig()
	if cfg.UseDatabase() {
		t.Fatal("empty host must disable the journal")
	}
	cfg.Database.Host = "localhost"
	if !cfg.UseDatabase() {
		t.Fatal("non-empty host must enable the journal")
	}
}
