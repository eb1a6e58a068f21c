// Package pubfront is a server-rendered blog front-end over a headless CMS
// that speaks the Prismic REST API.
//
// It renders a paginated post listing with load-more, post pages with
// reading time, edited notice, neighbour navigation and an utterances comment
// widget, and supports CMS preview sessions. Published pages are generated
// ahead of time and kept in a PageStore; unknown posts are generated on
// first request while a fallback page is shown.
package pubfront

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/prismic"
	"github.com/eringen/pubfront/views"
)

// CMS is the content API the App reads from. *prismic.Client implements it.
type CMS interface {
	ContentSource
	ResolvePreviewURL(ctx context.Context, token, documentID string, resolve prismic.LinkResolver, fallback string) (string, error)
}

// ViewFuncs holds the components the App renders. DefaultViews returns the
// built-in templates; any of them can be replaced with WithViews.
type ViewFuncs struct {
	Home        func(site views.SiteConfig, listing views.Listing, preview bool) templ.Component
	Posts       func(site views.SiteConfig, listing views.Listing) templ.Component
	Post        func(site views.SiteConfig, post views.Post, preview bool) templ.Component
	Fallback    func(site views.SiteConfig) templ.Component
	NotFound    func(site views.SiteConfig) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Posts:       views.Posts,
		Post:        views.PostPage,
		Fallback:    views.Fallback,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// App wires the CMS client, page store, handlers and middleware together.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	CMS    CMS
	Pages  *PageStore
	Views  ViewFuncs

	site         views.SiteConfig
	limiter      *IPLimiter
	genLimiter   *IPLimiter
	customRoutes []func(*App)
	staticDir    string
	ctx          context.Context
	cancel       context.CancelFunc
}

// New creates an App with routes and middleware in place. Nothing is
// fetched from the CMS until Start, Prerender or the first request.
func New(cfg SiteConfig, opts ...Option) (*App, error) {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     DefaultViews(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.Logger.SetLevel(a.Config.logLevel())

	for _, opt := range opts {
		opt(a)
	}

	if a.CMS == nil {
		client, err := prismic.New(cfg.PrismicEndpoint,
			prismic.WithAccessToken(cfg.PrismicAccessToken),
			prismic.WithTimeout(cfg.CMSTimeout),
			prismic.WithLogger(slog.Default()),
		)
		if err != nil {
			return nil, fmt.Errorf("pubfront: cms client: %w", err)
		}
		a.CMS = client
	}

	if a.Config.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("pubfront: session secret: %w", err)
		}
		a.Config.SessionSecret = secret
		a.Echo.Logger.Warn("SESSION_SECRET is not set; preview sessions end on restart")
	}

	loc := a.Config.location()
	if loc == nil && a.Config.TimeZone != "" {
		a.Echo.Logger.Warnf("unknown TIME_ZONE %q; showing CMS times", a.Config.TimeZone)
	}
	a.site = a.Config.view(loc)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.Pages = NewPageStore(a.ctx, a.generatePage, a.Config.Revalidate)
	a.limiter = NewIPLimiter(a.Config.LoadMoreRate, a.Config.LoadMoreBurst, 10*time.Minute)
	a.genLimiter = NewIPLimiter(a.Config.GenerateRate, a.Config.GenerateBurst, 10*time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a, nil
}

// Prerender generates the listing and every post page the CMS knows about.
func (a *App) Prerender(ctx context.Context) error {
	paths, err := StaticPaths(ctx, a.CMS)
	if err != nil {
		return fmt.Errorf("pubfront: static paths: %w", err)
	}
	return a.Pages.Prerender(ctx, append([]string{"/"}, paths...))
}

// Start prerenders the site and starts the server. A failed prerender is
// logged and pages are generated on demand instead.
func (a *App) Start(ctx context.Context) error {
	if err := a.Prerender(ctx); err != nil {
		a.Echo.Logger.Warnf("prerender: %v", err)
	} else {
		a.Echo.Logger.Infof("prerendered %d pages", len(a.Pages.Routes()))
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	assetHandler := http.FileServer(http.FS(assets))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", assetHandler)))
	e.GET("/public/pager.js", echo.WrapHandler(http.StripPrefix("/public/", assetHandler)))

	// Site-owned assets such as the logo and favicon.
	e.Static("/public", a.staticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/posts/more", a.handleMorePosts, a.limiter.Middleware)
	e.GET("/post/:slug/", a.handlePost)

	e.GET("/api/preview", a.handlePreview)
	e.GET("/api/exit-preview", handleExitPreview)
	e.POST("/api/revalidate", a.handleRevalidate)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	a.cancel()
	a.limiter.Close()
	a.genLimiter.Close()
	return a.Echo.Close()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
