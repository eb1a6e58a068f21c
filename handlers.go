package pubfront

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/prismic"
)

func (a *App) handleHome(c echo.Context) error {
	page := pageNumber(c.QueryParam("page"))
	if ref := PreviewRef(c); ref != "" || page > 1 {
		body, err := a.renderHome(c.Request().Context(), ref, page)
		if err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, body)
	}
	return a.servePage(c, "/")
}

// handleMorePosts renders the next page of the listing as a fragment for
// the load-more control.
func (a *App) handleMorePosts(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing cursor")
	}
	page := pageNumber(c.QueryParam("page"))
	if page < 2 {
		page = 2
	}
	listing := &Listing{NextPage: cursor}
	if err := listing.LoadMore(c.Request().Context(), a.CMS); err != nil {
		if errors.Is(err, prismic.ErrForeignURL) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
		}
		c.Logger().Errorf("load more posts: %v", err)
		return c.NoContent(http.StatusBadGateway)
	}
	return Render(c, a.Views.Posts(a.site, listingView(listing.Posts, listing.NextPage, page+1)))
}

func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("slug")
	if ref := PreviewRef(c); ref != "" {
		pp, err := LoadPost(c.Request().Context(), a.CMS, uid, ref)
		if err != nil {
			return err
		}
		return Render(c, a.Views.Post(a.site, postView(pp), true))
	}

	route := PostPath(uid)
	if p, stale, ok := a.Pages.Get(route); ok {
		if stale {
			a.Pages.Start(route)
		}
		return writePage(c, p)
	}
	if err := a.Pages.TakeErr(route); err != nil {
		return err
	}
	if !a.genLimiter.Allow(c.RealIP()) {
		c.Logger().Warnf("generation rate limit exceeded: %s %s", c.RealIP(), route)
		return echo.NewHTTPError(http.StatusTooManyRequests)
	}
	a.Pages.Start(route)
	c.Response().Header().Set("Cache-Control", "no-store")
	return Render(c, a.Views.Fallback(a.site))
}

// servePage serves route from the page store, generating it on a miss.
func (a *App) servePage(c echo.Context, route string) error {
	if p, stale, ok := a.Pages.Get(route); ok {
		if stale {
			a.Pages.Start(route)
		}
		return writePage(c, p)
	}
	p, err := a.Pages.Generate(c.Request().Context(), route)
	if err != nil {
		return err
	}
	return writePage(c, p)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := LoadAllPosts(c.Request().Context(), a.CMS, "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := LoadAllPosts(c.Request().Context(), a.CMS, "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	return c.String(http.StatusOK, a.robots())
}

// generatePage renders the published version of route for the page store.
func (a *App) generatePage(ctx context.Context, route string) (Page, error) {
	if route == "/" {
		body, err := a.renderHome(ctx, "", 1)
		if err != nil {
			return Page{}, err
		}
		return Page{Status: http.StatusOK, Body: body}, nil
	}
	uid := PostUID(route)
	if uid == "" {
		return a.notFoundPage(ctx)
	}
	pp, err := LoadPost(ctx, a.CMS, uid, "")
	if errors.Is(err, ErrPostNotFound) {
		return a.notFoundPage(ctx)
	}
	if err != nil {
		return Page{}, err
	}
	body, err := renderBytes(ctx, a.Views.Post(a.site, postView(pp), false))
	if err != nil {
		return Page{}, err
	}
	return Page{Status: http.StatusOK, Body: body}, nil
}

func (a *App) notFoundPage(ctx context.Context) (Page, error) {
	body, err := renderBytes(ctx, a.Views.NotFound(a.site))
	if err != nil {
		return Page{}, err
	}
	return Page{Status: http.StatusNotFound, Body: body}, nil
}

func (a *App) renderHome(ctx context.Context, ref string, page int) ([]byte, error) {
	p, err := LoadPostList(ctx, a.CMS, ref, a.Config.PageSize, page)
	if err != nil {
		return nil, err
	}
	listing := NewListing(p)
	view := listingView(listing.Posts, listing.NextPage, page+1)
	return renderBytes(ctx, a.Views.Home(a.site, view, ref != ""))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, ErrPostNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site))
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
