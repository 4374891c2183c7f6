// Package session gates entries on trading hours, weekday, and scheduled
// news proximity. The gate is a pure predicate of the clock.
package session

import (
	"strings"
	"time"

	"mech-trading-bot/internal/trerr"
)

// Impact ranks a scheduled news event.
type Impact int

const (
	ImpactLow Impact = iota + 1
	ImpactMedium
	ImpactHigh
)

func ParseImpact(s string) (Impact, error) {
	switch strings.ToUpper(s) {
	case "LOW":
		return ImpactLow, nil
	case "MEDIUM":
		return ImpactMedium, nil
	case "HIGH":
		return ImpactHigh, nil
	}
	return 0, trerr.New(trerr.KindConfigurationInvalid, "session.ParseImpact",
		"unknown impact %q", s)
}

func (i Impact) String() string {
	switch i {
	case ImpactLow:
		return "LOW"
	case ImpactMedium:
		return "MEDIUM"
	case ImpactHigh:
		return "HIGH"
	}
	return "UNKNOWN"
}

// NewsWindow is one scheduled event: its time of day (minutes after
// midnight), the avoidance radius around it, and its impact.
type NewsWindow struct {
	MinuteOfDay  int
	AvoidMinutes int
	Impact       Impact
}

// Gate is the composite permission check. Hours and weekdays are fixed at
// construction; news windows may be replaced as the calendar refreshes.
type Gate struct {
	hoursEnabled       bool
	startHour, endHour int
	weekdays           map[time.Weekday]bool
	minImpact          Impact
	windows            []NewsWindow
	loc                *time.Location
}

// Config describes a Gate. HoursEnabled with StartHour > EndHour means an
// overnight window. An empty Weekdays list allows every weekday.
type Config struct {
	HoursEnabled bool
	StartHour    int
	EndHour      int
	Weekdays     []time.Weekday
	MinImpact    Impact
	Windows      []NewsWindow
	Location     *time.Location
}

func NewGate(cfg Config) (*Gate, error) {
	const op = "session.NewGate"
	if cfg.HoursEnabled {
		if cfg.StartHour < 0 || cfg.StartHour > 23 || cfg.EndHour < 0 || cfg.EndHour > 23 {
			return nil, trerr.New(trerr.KindConfigurationInvalid, op,
				"trading hours out of range: start=%d end=%d", cfg.StartHour, cfg.EndHour)
		}
		if cfg.StartHour == cfg.EndHour {
			return nil, trerr.New(trerr.KindConfigurationInvalid, op,
				"trading start hour equals end hour (%d)", cfg.StartHour)
		}
	}
	if err := validateWindows(op, cfg.Windows); err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	g := &Gate{
		hoursEnabled: cfg.HoursEnabled,
		startHour:    cfg.StartHour,
		endHour:      cfg.EndHour,
		weekdays:     make(map[time.Weekday]bool),
		minImpact:    cfg.MinImpact,
		windows:      cfg.Windows,
		loc:          loc,
	}
	if len(cfg.Weekdays) == 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			g.weekdays[d] = true
		}
	} else {
		for _, d := range cfg.Weekdays {
			g.weekdays[d] = true
		}
	}
	return g, nil
}

func validateWindows(op string, windows []NewsWindow) error {
	for _, nw := range windows {
		if nw.MinuteOfDay < 0 || nw.MinuteOfDay >= 24*60 {
			return trerr.New(trerr.KindConfigurationInvalid, op,
				"news window minute-of-day out of range: %d", nw.MinuteOfDay)
		}
		if nw.AvoidMinutes < 0 {
			return trerr.New(trerr.KindConfigurationInvalid, op,
				"news avoidance minutes must not be negative: %d", nw.AvoidMinutes)
		}
	}
	return nil
}

// SetWindows replaces the scheduled-news windows with a freshly fetched
// set. Invalid windows are rejected and the previous set is kept.
func (g *Gate) SetWindows(windows []NewsWindow) error {
	if err := validateWindows("session.SetWindows", windows); err != nil {
		return err
	}
	g.windows = windows
	return nil
}

// Allows evaluates all three checks for the given instant. The returned
// reason names the failing check when trading is blocked.
func (g *Gate) Allows(now time.Time) (bool, string) {
	now = now.In(g.loc)

	if g.hoursEnabled && !g.hourAllowed(now.Hour()) {
		return false, "outside trading hours"
	}
	if !g.weekdays[now.Weekday()] {
		return false, "weekday not allowed"
	}
	if g.nearNews(now) {
		return false, "scheduled news window"
	}
	return true, ""
}

// hourAllowed applies the half-open [start, end) window, wrapping overnight
// when start > end.
func (g *Gate) hourAllowed(hour int) bool {
	if g.startHour < g.endHour {
		return hour >= g.startHour && hour < g.endHour
	}
	return hour >= g.startHour || hour < g.endHour
}

// nearNews reports whether the instant falls inside any configured event's
// avoidance radius. Weekends carry no scheduled news and are exempt.
func (g *Gate) nearNews(now time.Time) bool {
	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	for _, nw := range g.windows {
		if nw.Impact < g.minImpact {
			continue
		}
		diff := minute - nw.MinuteOfDay
		if diff < 0 {
			diff = -diff
		}
		if diff <= nw.AvoidMinutes {
			return true
		}
	}
	return false
}
