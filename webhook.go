package pubfront

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// publishHook is the part of a CMS webhook payload the site reads.
type publishHook struct {
	Type   string `json:"type"`
	Secret string `json:"secret"`
}

// handleRevalidate drops every generated page and prerenders the site again
// in the background. The CMS calls it after publishing.
func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.RevalidateSecret == "" {
		return echo.ErrNotFound
	}
	var hook publishHook
	if err := c.Bind(&hook); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if subtle.ConstantTimeCompare([]byte(hook.Secret), []byte(a.Config.RevalidateSecret)) != 1 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid secret")
	}

	a.Pages.Invalidate()
	go func() {
		if err := a.Prerender(a.ctx); err != nil {
			a.Echo.Logger.Warnf("revalidate: %v", err)
			return
		}
		a.Echo.Logger.Infof("revalidated %d pages", len(a.Pages.Routes()))
	}()
	return c.NoContent(http.StatusAccepted)
}
