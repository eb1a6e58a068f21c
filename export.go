package pubfront

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Export writes the published site as static files into outDir and returns
// the routes written. Post pages, feed, sitemap and robots.txt are rendered
// through the router. The listing is written with every post on one page,
// since load-more needs the server.
func (a *App) Export(ctx context.Context, outDir string) ([]string, error) {
	if err := a.Prerender(ctx); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	posts, err := LoadAllPosts(ctx, a.CMS, "")
	if err != nil {
		return nil, err
	}
	home, err := renderBytes(ctx, a.Views.Home(a.site, listingView(posts, "", 0), false))
	if err != nil {
		return nil, err
	}
	if err := writeRoute(outDir, "/", home); err != nil {
		return nil, err
	}
	written := []string{"/"}

	routes := []string{"/feed.xml", "/sitemap.xml", "/robots.txt"}
	for _, p := range posts {
		if p.UID != "" {
			routes = append(routes, PostPath(p.UID))
		}
	}
	for _, route := range routes {
		body, err := a.crawl(ctx, route)
		if err != nil {
			return written, err
		}
		if err := writeRoute(outDir, route, body); err != nil {
			return written, err
		}
		written = append(written, route)
	}

	notFound, err := a.notFoundPage(ctx)
	if err != nil {
		return written, err
	}
	if err := os.WriteFile(filepath.Join(outDir, "404.html"), notFound.Body, 0o644); err != nil {
		return written, err
	}

	if err := copyAssets(filepath.Join(outDir, "public"), a.staticDir); err != nil {
		return written, err
	}
	return written, nil
}

func (a *App) crawl(ctx context.Context, route string) ([]byte, error) {
	req := httptest.NewRequest(http.MethodGet, route, nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		return nil, fmt.Errorf("export %s: status %d", route, rec.Code)
	}
	return rec.Body.Bytes(), nil
}

// writeRoute maps "/" to index.html, "/post/x/" to post/x/index.html and
// file-like routes such as "/feed.xml" to themselves.
func writeRoute(outDir, route string, body []byte) error {
	rel := strings.TrimPrefix(route, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel = path.Join(rel, "index.html")
	}
	out := filepath.Join(outDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return os.WriteFile(out, body, 0o644)
}

// copyAssets copies the embedded assets and, when it exists, the site's
// static dir into dst.
func copyAssets(dst, staticDir string) error {
	assets, err := fs.Sub(EmbeddedAssets, "embedded")
	if err != nil {
		return err
	}
	if err := copyFS(dst, assets); err != nil {
		return err
	}
	if info, err := os.Stat(staticDir); err == nil && info.IsDir() {
		return copyFS(dst, os.DirFS(staticDir))
	}
	return nil
}

func copyFS(dst string, src fs.FS) error {
	return fs.WalkDir(src, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(src, p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
