package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"mech-trading-bot/internal/logger"
	"mech-trading-bot/internal/session"
	"mech-trading-bot/internal/store"
)

// Scraper pulls today's economic-calendar rows from a configured page.
type Scraper struct {
	pageURL      string
	rowSelector  string
	timeSelector string
	impactAttr   string
	avoidMinutes int
	rateLimit    time.Duration
	timeout      time.Duration
}

func NewScraper(cfg *store.Config) *Scraper {
	sc := cfg.Session.News.Scrape
	rate := time.Duration(sc.RateLimitSecs) * time.Second
	if rate <= 0 {
		rate = 2 * time.Second
	}
	avoid := sc.AvoidMinutes
	if avoid <= 0 {
		avoid = 30
	}
	return &Scraper{
		pageURL:      sc.URL,
		rowSelector:  sc.RowSelector,
		timeSelector: sc.TimeSelector,
		impactAttr:   sc.ImpactAttr,
		avoidMinutes: avoid,
		rateLimit:    rate,
		timeout:      20 * time.Second,
	}
}

// ScrapeToday visits the calendar page and extracts one avoidance window
// per event row. Rows with unparseable times or impacts are skipped.
func (s *Scraper) ScrapeToday(ctx context.Context) ([]session.NewsWindow, error) {
	if s.pageURL == "" || s.rowSelector == "" {
		return nil, fmt.Errorf("calendar scrape source not configured")
	}

	windows := []session.NewsWindow{}

	c := colly.NewCollector(
		colly.AllowedDomains(getDomain(s.pageURL)),
		colly.MaxDepth(1),
		colly.Async(false),
	)
	c.SetRequestTimeout(s.timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: s.rateLimit})

	// Set user agent to avoid being blocked
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	})

	c.OnHTML(s.rowSelector, func(e *colly.HTMLElement) {
		clock := strings.TrimSpace(e.ChildText(s.timeSelector))
		if clock == "" {
			return
		}
		minute, err := parseClock(clock)
		if err != nil {
			return
		}
		impact, err := session.ParseImpact(e.Attr(s.impactAttr))
		if err != nil {
			return
		}
		windows = append(windows, session.NewsWindow{
			MinuteOfDay:  minute,
			AvoidMinutes: s.avoidMinutes,
			Impact:       impact,
		})
	})

	c.OnError(func(r *colly.Response, err error) {
		logger.ErrorWithErr(ctx, "Calendar scraping error", err, "url", r.Request.URL.String())
	})

	if err := c.Visit(s.pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", s.pageURL, err)
	}
	c.Wait()

	return windows, nil
}

func getDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
