package pubfront

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eringen/pubfront/prismic"
	"github.com/eringen/pubfront/richtext"
)

const (
	fakeCMSBase = "http://cms.test/api/v2/documents/search"
	previewRef  = "preview-ref"
)

// fakeCMS is an in-memory CMS. Documents are returned in slice order.
// Drafts are only visible under previewRef.
type fakeCMS struct {
	mu      sync.Mutex
	docs    []prismic.Document
	drafts  []prismic.Document
	err     error
	block   chan struct{}
	queries int
}

func (f *fakeCMS) visible(ref string) []prismic.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	docs := append([]prismic.Document(nil), f.docs...)
	if ref == previewRef {
		docs = append(docs, f.drafts...)
	}
	return docs
}

func (f *fakeCMS) wait(ctx context.Context) error {
	f.mu.Lock()
	f.queries++
	block, err := f.block, f.err
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeCMS) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeCMS) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *fakeCMS) page(ref string, pageSize, page int) *prismic.Response {
	docs := f.visible(ref)
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start > len(docs) {
		start = len(docs)
	}
	end := start + pageSize
	if end > len(docs) {
		end = len(docs)
	}
	resp := &prismic.Response{Page: page, ResultsPerPage: pageSize, Results: docs[start:end]}
	if end < len(docs) {
		next := fmt.Sprintf("%s?ref=%s&pageSize=%d&page=%d", fakeCMSBase, url.QueryEscape(ref), pageSize, page+1)
		resp.NextPage = &next
	}
	return resp
}

func (f *fakeCMS) Query(ctx context.Context, _ []prismic.Predicate, opts prismic.QueryOptions) (*prismic.Response, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	size := opts.PageSize
	if size == 0 {
		size = 20
	}
	return f.page(opts.Ref, size, opts.Page), nil
}

func (f *fakeCMS) QueryAll(ctx context.Context, _ []prismic.Predicate, opts prismic.QueryOptions) ([]prismic.Document, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.visible(opts.Ref), nil
}

func (f *fakeCMS) FetchPage(ctx context.Context, pageURL string) (*prismic.Response, error) {
	if !strings.HasPrefix(pageURL, fakeCMSBase) {
		return nil, fmt.Errorf("%w: %s", prismic.ErrForeignURL, pageURL)
	}
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	size, _ := strconv.Atoi(q.Get("pageSize"))
	page, _ := strconv.Atoi(q.Get("page"))
	return f.page(q.Get("ref"), size, page), nil
}

func (f *fakeCMS) ResolvePreviewURL(_ context.Context, token, documentID string, resolve prismic.LinkResolver, fallback string) (string, error) {
	for _, doc := range f.visible(token) {
		if doc.ID == documentID {
			return resolve(doc), nil
		}
	}
	return fallback, nil
}

type testSection struct {
	heading string
	body    string
}

func postDoc(t *testing.T, uid, title string, first, last time.Time, sections ...testSection) prismic.Document {
	t.Helper()
	content := make([]map[string]any, 0, len(sections))
	for _, s := range sections {
		content = append(content, map[string]any{
			"heading": s.heading,
			"body":    richtext.RichText{{Type: richtext.Paragraph, Text: s.body}},
		})
	}
	data, err := json.Marshal(map[string]any{
		"title":    title,
		"subtitle": title + " subtitle",
		"author":   "Ana",
		"banner":   map[string]string{"url": "https://images.test/" + uid + ".jpg"},
		"content":  content,
	})
	require.NoError(t, err)
	return prismic.Document{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 PostType,
		FirstPublicationDate: prismic.Time{Time: first},
		LastPublicationDate:  prismic.Time{Time: last},
		Data:                 data,
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

// newFakeCMS returns posts "one", "two" and "three", newest first.
func newFakeCMS(t *testing.T) *fakeCMS {
	t.Helper()
	base := time.Date(2021, time.March, 15, 19, 25, 0, 0, time.UTC)
	return &fakeCMS{docs: []prismic.Document{
		postDoc(t, "one", "Post One", base, base, testSection{"Intro", words(10)}),
		postDoc(t, "two", "Post Two", base.Add(-24*time.Hour), base.Add(time.Hour), testSection{"Body", words(250)}),
		postDoc(t, "three", "Post Three", base.Add(-48*time.Hour), base.Add(-48*time.Hour)),
	}}
}

func newTestApp(t *testing.T, cms *fakeCMS, cfg SiteConfig) *App {
	t.Helper()
	cfg.SessionSecret = "test-secret"
	cfg.LogLevel = "error"
	cfg.TimeZone = "UTC"
	if cfg.URL == "" {
		cfg.URL = "https://blog.example.com"
	}
	app, err := New(cfg, WithContentSource(cms), WithStaticDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}
