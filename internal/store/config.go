package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mech-trading-bot/internal/trerr"
)

type Config struct {
	Mode        string `yaml:"mode"`        // DRY_RUN or LIVE
	DataSource  string `yaml:"data_source"` // STATIC or LIVE
	PollSeconds int    `yaml:"poll_seconds"`
	Exchange    string `yaml:"exchange"`
	Timezone    string `yaml:"timezone"`

	Instrument       string `yaml:"instrument"`
	StrategyID       string `yaml:"strategy_id"`
	TimeframeMinutes int    `yaml:"timeframe_minutes"`
	WindowBars       int    `yaml:"window_bars"`

	Pattern struct {
		Rule             string  `yaml:"rule"` // SHADOW_VOLUME, ENGULFING, OUTSIDE_BAR
		VolumeMultiplier float64 `yaml:"volume_multiplier"`
	} `yaml:"pattern"`

	Confirmation struct {
		Enabled      bool `yaml:"enabled"`
		ConfirmBars  int  `yaml:"confirm_bars"`
		DeadlineBars int  `yaml:"deadline_bars"`
	} `yaml:"confirmation"`

	Risk struct {
		BaseSize  float64 `yaml:"base_size"`
		MaxSize   float64 `yaml:"max_size"`
		Increment float64 `yaml:"increment"`
	} `yaml:"risk"`

	Session struct {
		Hours struct {
			Enabled   bool `yaml:"enabled"`
			StartHour int  `yaml:"start_hour"`
			EndHour   int  `yaml:"end_hour"`
		} `yaml:"hours"`
		Weekdays []string `yaml:"weekdays"` // empty = all
		News     struct {
			Source    string `yaml:"source"` // STATIC or SCRAPE
			MinImpact string `yaml:"min_impact"`
			Static    []struct {
				Time         string `yaml:"time"` // "15:04" exchange-local
				Impact       string `yaml:"impact"`
				AvoidMinutes int    `yaml:"avoid_minutes"`
			} `yaml:"static"`
			Scrape struct {
				URL           string `yaml:"url"`
				RowSelector   string `yaml:"row_selector"`
				TimeSelector  string `yaml:"time_selector"`
				ImpactAttr    string `yaml:"impact_attr"`
				AvoidMinutes  int    `yaml:"avoid_minutes"`
				CacheMinutes  int    `yaml:"cache_minutes"`
				RateLimitSecs int    `yaml:"rate_limit_secs"`
			} `yaml:"scrape"`
		} `yaml:"news"`
	} `yaml:"session"`

	Stop struct {
		Points           float64 `yaml:"points"`
		TakeProfitPoints float64 `yaml:"take_profit_points"`
		MinTick          float64 `yaml:"min_tick"`
		Trailing         struct {
			Enabled   bool    `yaml:"enabled"`
			Mode      string  `yaml:"mode"` // POINTS or ATR
			Points    float64 `yaml:"points"`
			ATRPeriod int     `yaml:"atr_period"`
			ATRMult   float64 `yaml:"atr_mult"`
		} `yaml:"trailing"`
	} `yaml:"stop"`

	ExitAfterHours int `yaml:"exit_after_hours"`
}

func (c *Config) Validate() error {
	const op = "store.Validate"
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return trerr.New(trerr.KindConfigurationInvalid, op, "invalid mode %q: must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		return trerr.New(trerr.KindConfigurationInvalid, op, "invalid data_source %q: must be 'STATIC' or 'LIVE'", c.DataSource)
	}
	if c.Instrument == "" {
		return trerr.New(trerr.KindConfigurationInvalid, op, "instrument cannot be empty")
	}
	if c.StrategyID == "" {
		return trerr.New(trerr.KindConfigurationInvalid, op, "strategy_id cannot be empty")
	}
	if c.TimeframeMinutes <= 0 {
		return trerr.New(trerr.KindConfigurationInvalid, op, "timeframe_minutes must be positive, got %d", c.TimeframeMinutes)
	}
	if c.Stop.Points <= 0 || c.Stop.TakeProfitPoints <= 0 {
		return trerr.New(trerr.KindConfigurationInvalid, op,
			"stop and take-profit distances must be positive, got %v/%v", c.Stop.Points, c.Stop.TakeProfitPoints)
	}
	if c.Stop.Trailing.Enabled {
		switch c.Stop.Trailing.Mode {
		case "POINTS":
			if c.Stop.Trailing.Points <= 0 {
				return trerr.New(trerr.KindConfigurationInvalid, op, "trailing points must be positive")
			}
		case "ATR":
			if c.Stop.Trailing.ATRPeriod <= 0 || c.Stop.Trailing.ATRMult <= 0 {
				return trerr.New(trerr.KindConfigurationInvalid, op, "trailing ATR period and multiplier must be positive")
			}
		default:
			return trerr.New(trerr.KindConfigurationInvalid, op, "trailing mode must be 'POINTS' or 'ATR', got %q", c.Stop.Trailing.Mode)
		}
	}
	if c.Session.News.Source != "" && c.Session.News.Source != "STATIC" && c.Session.News.Source != "SCRAPE" {
		return trerr.New(trerr.KindConfigurationInvalid, op, "news source must be 'STATIC' or 'SCRAPE', got %q", c.Session.News.Source)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.AllowedWeekdays(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured exchange-local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, trerr.New(trerr.KindConfigurationInvalid, "store.Location", "unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

// AllowedWeekdays parses the weekday allow-list; empty means all days.
func (c *Config) AllowedWeekdays() ([]time.Weekday, error) {
	names := map[string]time.Weekday{
		"SUNDAY": time.Sunday, "MONDAY": time.Monday, "TUESDAY": time.Tuesday,
		"WEDNESDAY": time.Wednesday, "THURSDAY": time.Thursday,
		"FRIDAY": time.Friday, "SATURDAY": time.Saturday,
	}
	out := make([]time.Weekday, 0, len(c.Session.Weekdays))
	for _, s := range c.Session.Weekdays {
		d, ok := names[strings.ToUpper(s)]
		if !ok {
			return nil, trerr.New(trerr.KindConfigurationInvalid, "store.AllowedWeekdays", "unknown weekday %q", s)
		}
		out = append(out, d)
	}
	return out, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 15
	}
	if c.DataSource == "" {
		c.DataSource = "STATIC"
	}
	if c.WindowBars == 0 {
		c.WindowBars = 64
	}
	if c.Pattern.Rule == "" {
		c.Pattern.Rule = "SHADOW_VOLUME"
	}
	if c.Pattern.VolumeMultiplier == 0 {
		c.Pattern.VolumeMultiplier = 1.5
	}
	if c.Confirmation.ConfirmBars == 0 {
		c.Confirmation.ConfirmBars = 5
	}
	if c.Confirmation.DeadlineBars == 0 {
		c.Confirmation.DeadlineBars = c.Confirmation.ConfirmBars
	}
	if c.Session.News.MinImpact == "" {
		c.Session.News.MinImpact = "HIGH"
	}
	if c.Risk.BaseSize == 0 {
		c.Risk.BaseSize = 0.01
	}
	if c.Risk.MaxSize == 0 {
		c.Risk.MaxSize = 1.0
	}
	if c.Risk.Increment == 0 {
		c.Risk.Increment = 0.01
	}
	if c.ExitAfterHours == 0 {
		c.ExitAfterHours = 24
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
