package pubfront

import (
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	previewSession = "preview_session"
	previewRefKey  = "ref"
)

// PreviewRef returns the CMS preview ref of the current session, or "" when
// the visitor is not in preview mode.
func PreviewRef(c echo.Context) string {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values[previewRefKey].(string)
	return ref
}

func setPreviewRef(c echo.Context, ref string) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Values[previewRefKey] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreview(c echo.Context) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	delete(sess.Values, previewRefKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// handlePreview enters preview mode for the ref in token and redirects to
// the previewed document.
func (a *App) handlePreview(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing preview token")
	}
	target, err := a.CMS.ResolvePreviewURL(c.Request().Context(), token, c.QueryParam("documentId"), LinkResolver, "/")
	if err != nil {
		return err
	}
	if err := setPreviewRef(c, token); err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Redirect(http.StatusTemporaryRedirect, target)
}

func handleExitPreview(c echo.Context) error {
	if err := clearPreview(c); err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}
