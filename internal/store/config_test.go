package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mech-trading-bot/internal/trerr"
)

func baseConfig() *Config {
	c := &Config{
		Mode:             "DRY_RUN",
		DataSource:       "STATIC",
		Instrument:       "EURUSD",
		StrategyID:       "shadow-1",
		TimeframeMinutes: 15,
	}
	c.Stop.Points = 0.0020
	c.Stop.TakeProfitPoints = 0.0040
	return c
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	c := baseConfig()
	c.Mode = "PAPER"
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestValidateRejectsNonPositiveStops(t *testing.T) {
	c := baseConfig()
	c.Stop.Points = 0
	err := c.Validate()
	if err == nil {
		t.Fatal("Expected error for zero stop distance")
	}
	if trerr.KindOf(err) != trerr.KindConfigurationInvalid {
		t.Errorf("Expected ConfigurationInvalid kind, got %v", trerr.KindOf(err))
	}
}

func TestValidateRejectsBadTrailingMode(t *testing.T) {
	c := baseConfig()
	c.Stop.Trailing.Enabled = true
	c.Stop.Trailing.Mode = "PCT"
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown trailing mode")
	}
}

func TestValidateRejectsBadWeekday(t *testing.T) {
	c := baseConfig()
	c.Session.Weekdays = []string{"MONDAY", "FUNDAY"}
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown weekday")
	}
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	c := baseConfig()
	c.Timezone = "Mars/Olympus"
	if err := c.Validate(); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
mode: DRY_RUN
instrument: EURUSD
strategy_id: shadow-1
timeframe_minutes: 15
stop:
  points: 0.002
  take_profit_points: 0.004
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.PollSeconds != 15 {
		t.Errorf("PollSeconds default = %d, want 15", c.PollSeconds)
	}
	if c.Pattern.Rule != "SHADOW_VOLUME" {
		t.Errorf("Pattern rule default = %q", c.Pattern.Rule)
	}
	if c.Confirmation.ConfirmBars != 5 || c.Confirmation.DeadlineBars != 5 {
		t.Errorf("Confirmation defaults = %d/%d, want 5/5",
			c.Confirmation.ConfirmBars, c.Confirmation.DeadlineBars)
	}
	if c.ExitAfterHours != 24 {
		t.Errorf("ExitAfterHours default = %d, want 24", c.ExitAfterHours)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
mode: DRY_RUN
instrument: EURUSD
strategy_id: shadow-1
timeframe_minutes: 15
stop:
  points: -1
  take_profit_points: 0.004
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("Expected validation failure")
	}
	var te *trerr.Error
	if !errors.As(err, &te) {
		t.Errorf("Expected wrapped trerr.Error, got %v", err)
	}
}
