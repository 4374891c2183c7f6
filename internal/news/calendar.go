// Package news supplies the scheduled-event windows the session gate avoids.
// Events come from the static config list or from a scraped economic
// calendar, with the static list as fallback.
package news

import (
	"context"
	"sync"
	"time"

	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/session"
	"mech-trading-bot/internal/store"
	"mech-trading-bot/internal/trerr"
)

// Calendar resolves today's scheduled news events into avoidance windows.
type Calendar struct {
	cfg     *store.Config
	scraper *Scraper

	mu       sync.Mutex
	cached   []session.NewsWindow
	cachedAt time.Time
	ttl      time.Duration
}

func NewCalendar(cfg *store.Config) *Calendar {
	c := &Calendar{cfg: cfg}
	if cfg.Session.News.Source == "SCRAPE" {
		ttl := time.Duration(cfg.Session.News.Scrape.CacheMinutes) * time.Minute
		if ttl <= 0 {
			ttl = time.Hour
		}
		c.ttl = ttl
		c.scraper = NewScraper(cfg)
	}
	return c
}

// Windows returns the avoidance windows for the session gate. With the
// SCRAPE source it serves a cached result inside the TTL and falls back to
// the static list when scraping fails.
func (c *Calendar) Windows(ctx context.Context) ([]session.NewsWindow, error) {
	if c.scraper == nil {
		return c.staticWindows()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && time.Since(c.cachedAt) < c.ttl {
		return c.cached, nil
	}

	scraped, err := c.scraper.ScrapeToday(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Calendar scrape failed, using static news list", err)
		return c.staticWindows()
	}
	c.cached = scraped
	c.cachedAt = time.Now()
	logger.Info(ctx, "News calendar refreshed", "events", len(scraped))
	return scraped, nil
}

func (c *Calendar) staticWindows() ([]session.NewsWindow, error) {
	out := make([]session.NewsWindow, 0, len(c.cfg.Session.News.Static))
	for _, ev := range c.cfg.Session.News.Static {
		minute, err := parseClock(ev.Time)
		if err != nil {
			return nil, err
		}
		impact, err := session.ParseImpact(ev.Impact)
		if err != nil {
			return nil, err
		}
		out = append(out, session.NewsWindow{
			MinuteOfDay:  minute,
			AvoidMinutes: ev.AvoidMinutes,
			Impact:       impact,
		})
	}
	return out, nil
}

// parseClock converts "15:04" to minutes after midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, trerr.New(trerr.KindConfigurationInvalid, "news.parseClock",
			"bad event time %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
