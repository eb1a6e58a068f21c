package devcms

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pubfront/prismic"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "devcms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// contentDir holds three published posts and one draft.
func contentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lua.md"), `---
title: Sobre a Lua
subtitle: Uma viagem curta
author: Ana
date: 2021-03-15T19:25:00Z
updated: 2021-03-26T21:25:00Z
banner: https://images.test/lua.jpg
---
## Partida

Texto da **partida**.
`)
	writeFile(t, filepath.Join(dir, "marte.md"), `---
title: Marte
uid: mars
date: 2021-03-10T10:00:00Z
---
## Chegada

Poeira vermelha.
`)
	writeFile(t, filepath.Join(dir, "nested", "saturno.md"), `---
title: Saturno
date: 2021-03-01T10:00:00Z
---
Anéis.
`)
	writeFile(t, filepath.Join(dir, "draft.md"), `---
title: Rascunho
date: 2021-03-20T10:00:00Z
draft: true
---
Ainda não.
`)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	return dir
}

func importContent(t *testing.T, store *Store, dir string) ImportResult {
	t.Helper()
	im := &Importer{Store: store, MediaDir: filepath.Join(t.TempDir(), "media"), MediaURL: "http://cms.test/media"}
	res, err := im.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	return res
}

func TestImportDirStoresPosts(t *testing.T) {
	store := openTestStore(t)
	res := importContent(t, store, contentDir(t))
	assert.Equal(t, 4, res.Documents)
	assert.Equal(t, 1, res.Drafts)
	assert.NotEmpty(t, res.Ref)

	master, _, err := store.Refs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Ref, master)

	recs, total, err := store.Search(context.Background(), Filter{Type: PostType})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"sobre-a-lua", "mars", "saturno"}, []string{recs[0].UID, recs[1].UID, recs[2].UID})

	var data postData
	require.NoError(t, json.Unmarshal(recs[0].Data, &data))
	assert.Equal(t, "Sobre a Lua", data.Title)
	assert.Equal(t, "https://images.test/lua.jpg", data.Banner.URL)
	require.Len(t, data.Content, 1)
	assert.Equal(t, "Partida", data.Content[0].Heading)
	assert.True(t, recs[0].LastPublished.After(recs[0].FirstPublished))

	_, total, err = store.Search(context.Background(), Filter{Type: PostType, Drafts: true})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestImportReplacesPreviousContent(t *testing.T) {
	store := openTestStore(t)
	dir := contentDir(t)
	first := importContent(t, store, dir)

	require.NoError(t, os.Remove(filepath.Join(dir, "marte.md")))
	second := importContent(t, store, dir)
	assert.NotEqual(t, first.Ref, second.Ref)

	recs, _, err := store.Search(context.Background(), Filter{UID: "mars"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestImportRejectsDuplicateUID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "---\ntitle: Same\n---\nA\n")
	writeFile(t, filepath.Join(dir, "b.md"), "---\ntitle: Same\n---\nB\n")

	im := &Importer{Store: openTestStore(t)}
	_, err := im.ImportDir(context.Background(), dir)
	assert.ErrorContains(t, err, `duplicate uid "same"`)
}

func TestImportRejectsUpdatedBeforeDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path, "---\ntitle: A\ndate: 2021-03-15\nupdated: 2021-03-01\n---\nA\n")

	_, err := (&Importer{}).ImportFile(path)
	assert.Error(t, err)
}

func TestImportProcessesLocalBanner(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "wide.png"), 2000, 100)
	writeFile(t, filepath.Join(dir, "post.md"), "---\ntitle: Wide\nbanner: wide.png\nbanner_alt: Wide banner\n---\nBody\n")
	media := filepath.Join(t.TempDir(), "media")

	im := &Importer{MediaDir: media, MediaURL: "http://cms.test/media/"}
	rec, err := im.ImportFile(filepath.Join(dir, "post.md"))
	require.NoError(t, err)

	var data postData
	require.NoError(t, json.Unmarshal(rec.Data, &data))
	require.NotNil(t, data.Banner)
	assert.Equal(t, "http://cms.test/media/wide-banner.jpg", data.Banner.URL)
	assert.Equal(t, "Wide banner", data.Banner.Alt)
	assert.Equal(t, 1600, data.Banner.Dimensions.Width)
	assert.Equal(t, 80, data.Banner.Dimensions.Height)

	f, err := os.Open(filepath.Join(media, "wide-banner.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1600, cfg.Width)
}

func TestDocumentIDIsStable(t *testing.T) {
	assert.Equal(t, DocumentID(PostType, "a"), DocumentID(PostType, "a"))
	assert.NotEqual(t, DocumentID(PostType, "a"), DocumentID(PostType, "b"))
}

func newTestServer(t *testing.T, cfg Config) (*Store, *httptest.Server) {
	t.Helper()
	store := openTestStore(t)
	importContent(t, store, contentDir(t))
	srv := httptest.NewServer(NewServer(cfg, store, nil).Echo)
	t.Cleanup(srv.Close)
	return store, srv
}

func TestPrismicClientAgainstDevCMS(t *testing.T) {
	_, srv := newTestServer(t, Config{FrontendURL: "http://front.test"})
	client, err := prismic.New(srv.URL + "/api/v2")
	require.NoError(t, err)
	ctx := context.Background()
	posts := []prismic.Predicate{prismic.At("document.type", PostType)}

	resp, err := client.Query(ctx, posts, prismic.QueryOptions{
		PageSize:  2,
		Fetch:     []string{"posts.title"},
		Orderings: []string{"document.first_publication_date desc"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 3, resp.TotalResultsSize)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, "sobre-a-lua", resp.Results[0].UID)
	assert.JSONEq(t, `{"title":"Sobre a Lua"}`, string(resp.Results[0].Data))
	require.NotEmpty(t, resp.Next())

	next, err := client.FetchPage(ctx, resp.Next())
	require.NoError(t, err)
	require.Len(t, next.Results, 1)
	assert.Equal(t, "saturno", next.Results[0].UID)
	assert.Empty(t, next.Next())

	all, err := client.QueryAll(ctx, posts, prismic.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	doc, err := client.GetByUID(ctx, PostType, "mars", prismic.QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Marte", mustTitle(t, *doc))
	assert.True(t, doc.FirstPublicationDate.Equal(time.Date(2021, 3, 10, 10, 0, 0, 0, time.UTC)))

	_, err = client.GetByUID(ctx, PostType, "rascunho", prismic.QueryOptions{})
	assert.ErrorIs(t, err, prismic.ErrNotFound)
}

func TestDraftsOnlyUnderPreviewRef(t *testing.T) {
	store, srv := newTestServer(t, Config{FrontendURL: "http://front.test"})
	_, preview, err := store.Refs(context.Background())
	require.NoError(t, err)
	client, err := prismic.New(srv.URL + "/api/v2")
	require.NoError(t, err)
	ctx := context.Background()

	doc, err := client.GetByUID(ctx, PostType, "rascunho", prismic.QueryOptions{Ref: preview})
	require.NoError(t, err)
	assert.Equal(t, "Rascunho", mustTitle(t, *doc))

	target, err := client.ResolvePreviewURL(ctx, preview, doc.ID, func(d prismic.Document) string {
		return "/post/" + d.UID + "/"
	}, "/")
	require.NoError(t, err)
	assert.Equal(t, "/post/rascunho/", target)
}

func TestPreviewRedirect(t *testing.T) {
	store, srv := newTestServer(t, Config{FrontendURL: "http://front.test/"})
	_, preview, err := store.Refs(context.Background())
	require.NoError(t, err)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	res, err := client.Get(srv.URL + "/preview?documentId=abc")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusFound, res.StatusCode)
	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "front.test", loc.Host)
	assert.Equal(t, "/api/preview", loc.Path)
	assert.Equal(t, preview, loc.Query().Get("token"))
	assert.Equal(t, "abc", loc.Query().Get("documentId"))
}

func TestAccessToken(t *testing.T) {
	_, srv := newTestServer(t, Config{AccessToken: "secret"})

	anonymous, err := prismic.New(srv.URL + "/api/v2")
	require.NoError(t, err)
	_, err = anonymous.MasterRef(context.Background())
	var apiErr *prismic.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	authed, err := prismic.New(srv.URL+"/api/v2", prismic.WithAccessToken("secret"))
	require.NoError(t, err)
	resp, err := authed.Query(context.Background(), nil, prismic.QueryOptions{PageSize: 1})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Next())
	assert.NotContains(t, resp.Next(), "secret")

	_, err = authed.FetchPage(context.Background(), resp.Next())
	assert.NoError(t, err)
}

func TestSearchRejectsBadParams(t *testing.T) {
	store, srv := newTestServer(t, Config{})
	master, _, err := store.Refs(context.Background())
	require.NoError(t, err)

	for name, query := range map[string]url.Values{
		"missing ref":   {},
		"page size 0":   {"ref": {master}, "pageSize": {"0"}},
		"page size 101": {"ref": {master}, "pageSize": {"101"}},
		"bad page":      {"ref": {master}, "page": {"x"}},
		"predicate":     {"ref": {master}, "q": {`[[fulltext(document, "lua")]]`}},
		"ordering":      {"ref": {master}, "orderings": {"[my.posts.title]"}},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := http.Get(srv.URL + "/api/v2/documents/search?" + query.Encode())
			require.NoError(t, err)
			res.Body.Close()
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		})
	}
}

func TestParsePredicates(t *testing.T) {
	var f Filter
	require.NoError(t, parsePredicates(`[[at(document.type, "posts")][at(my.posts.uid, "a \"b\"")]]`, &f))
	assert.Equal(t, "posts", f.Type)
	assert.Equal(t, `a "b"`, f.UID)

	f = Filter{}
	require.NoError(t, parsePredicates(`[[at(document.id, "X1")]]`, &f))
	assert.Equal(t, "X1", f.ID)

	assert.ErrorIs(t, parsePredicates(`[[at(my.posts.title, "x")]]`, &Filter{}), ErrUnsupported)
}

func TestWatchDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, 50*time.Millisecond, nil, func() { calls.Add(1) })
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(dir, "post.md"), "---\ntitle: T\n---\nbody")
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func mustTitle(t *testing.T, doc prismic.Document) string {
	t.Helper()
	var data postData
	require.NoError(t, doc.Decode(&data))
	return data.Title
}
