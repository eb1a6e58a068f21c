package pubfront

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/labstack/gommon/log"

	"github.com/eringen/pubfront/comments"
	"github.com/eringen/pubfront/views"
)

// SiteConfig holds all configuration for a pubfront site.
type SiteConfig struct {
	Name        string `env:"SITE_NAME" envDefault:"spacetraveling"`
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"` // canonical URL
	Description string `env:"SITE_DESCRIPTION"`
	Author      string `env:"SITE_AUTHOR"`
	Locale      string `env:"LOCALE" envDefault:"pt-BR"`
	TimeZone    string `env:"TIME_ZONE" envDefault:"America/Sao_Paulo"`

	Addr     string `env:"ADDR" envDefault:":3000"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // debug, info, warn or error

	PrismicEndpoint    string        `env:"PRISMIC_ENDPOINT" envDefault:"http://localhost:4000/api/v2"`
	PrismicAccessToken string        `env:"PRISMIC_ACCESS_TOKEN"`
	CMSTimeout         time.Duration `env:"CMS_TIMEOUT" envDefault:"10s"`
	PageSize           int           `env:"POSTS_PAGE_SIZE" envDefault:"20"`

	SessionSecret string `env:"SESSION_SECRET"` // preview cookie; random per process when empty
	CookieSecure  bool   `env:"COOKIE_SECURE"`

	UtterancesRepo  string `env:"UTTERANCES_REPO"` // comments are off when empty
	UtterancesTheme string `env:"UTTERANCES_THEME" envDefault:"photon-dark"`
	UtterancesLabel string `env:"UTTERANCES_LABEL" envDefault:"comment :speech_balloon:"`

	Revalidate       time.Duration `env:"REVALIDATE"`                    // 0 keeps generated pages until restart
	RevalidateSecret string        `env:"REVALIDATE_SECRET"`             // enables the publish webhook
	LoadMoreRate     float64       `env:"LOAD_MORE_RATE" envDefault:"2"` // per IP, requests per second
	LoadMoreBurst    int           `env:"LOAD_MORE_BURST" envDefault:"5"`
	GenerateRate     float64       `env:"GENERATE_RATE" envDefault:"1"`  // on-demand post pages, per IP per second
	GenerateBurst    int           `env:"GENERATE_BURST" envDefault:"10"`
}

// LoadConfig reads the site configuration from the environment.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.PageSize < 1 || cfg.PageSize > 100 {
		return SiteConfig{}, fmt.Errorf("POSTS_PAGE_SIZE must be between 1 and 100, got %d", cfg.PageSize)
	}
	return cfg, nil
}

// setDefaults fills zero values for configs built as struct literals.
func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.CMSTimeout == 0 {
		c.CMSTimeout = 10 * time.Second
	}
	if c.UtterancesTheme == "" {
		c.UtterancesTheme = "photon-dark"
	}
	if c.UtterancesLabel == "" {
		c.UtterancesLabel = "comment :speech_balloon:"
	}
	if c.LoadMoreRate <= 0 {
		c.LoadMoreRate = 2
	}
	if c.LoadMoreBurst <= 0 {
		c.LoadMoreBurst = 5
	}
	if c.GenerateRate <= 0 {
		c.GenerateRate = 1
	}
	if c.GenerateBurst <= 0 {
		c.GenerateBurst = 10
	}
}

func (c SiteConfig) logLevel() log.Lvl {
	switch c.LogLevel {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	default:
		return log.INFO
	}
}

func (c SiteConfig) location() *time.Location {
	if c.TimeZone == "" {
		return nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil
	}
	return loc
}

// Comments returns the utterances setup for the post page.
func (c SiteConfig) Comments() comments.Config {
	cfg := comments.DefaultConfig(c.UtterancesRepo)
	cfg.Theme = c.UtterancesTheme
	cfg.Label = c.UtterancesLabel
	return cfg
}

func (c SiteConfig) view(loc *time.Location) views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
		Locale:      c.Locale,
		Location:    loc,
		Comments:    c.Comments(),
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets a directory of extra assets served under /public
// (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithViews replaces the default page templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithContentSource makes the App read from src instead of a CMS client
// built from PrismicEndpoint.
func WithContentSource(src CMS) Option {
	return func(a *App) {
		a.CMS = src
	}
}
