package pubfront

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportWritesSite(t *testing.T) {
	app := newTestApp(t, newFakeCMS(t), SiteConfig{PageSize: 1})
	require.NoError(t, os.WriteFile(filepath.Join(app.staticDir, "logo.svg"), []byte("<svg/>"), 0o644))
	out := t.TempDir()

	routes, err := app.Export(context.Background(), out)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"/", "/feed.xml", "/sitemap.xml", "/robots.txt",
		"/post/one/", "/post/two/", "/post/three/",
	}, routes)

	read := func(rel string) string {
		t.Helper()
		b, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
		require.NoError(t, err)
		return string(b)
	}

	home := read("index.html")
	assert.Contains(t, home, "Post One")
	assert.Contains(t, home, "Post Three")
	assert.NotContains(t, home, `class="load-more"`)

	assert.Contains(t, read("post/two/index.html"), "<h1>Post Two</h1>")
	assert.NotContains(t, read("post/two/index.html"), "Carregando...")
	assert.Contains(t, read("feed.xml"), "<rss")
	assert.Contains(t, read("sitemap.xml"), "<urlset")
	assert.Contains(t, read("robots.txt"), "Sitemap:")
	assert.Contains(t, read("404.html"), "Página não encontrada")
	assert.NotEmpty(t, read("public/style.css"))
	assert.NotEmpty(t, read("public/pager.js"))
	assert.Equal(t, "<svg/>", read("public/logo.svg"))
}

func TestWriteRoute(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeRoute(dir, "/", []byte("home")))
	require.NoError(t, writeRoute(dir, "/post/a/", []byte("a")))
	require.NoError(t, writeRoute(dir, "/feed.xml", []byte("feed")))

	for rel, want := range map[string]string{
		"index.html":        "home",
		"post/a/index.html": "a",
		"feed.xml":          "feed",
	} {
		b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
