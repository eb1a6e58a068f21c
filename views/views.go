// Package views renders the blog pages. Templates are embedded html/template
// files exposed as templ components so handlers can render them uniformly.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/pubfront/comments"
	"github.com/eringen/pubfront/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
)

var funcs = template.FuncMap{
	"richText": func(rt richtext.RichText) template.HTML {
		// CMS content is trusted and injected as is.
		return template.HTML(richtext.AsHTML(rt))
	},
	"comments": func(cfg comments.Config) template.HTML {
		return template.HTML(comments.HTML(comments.DefaultContainerID, cfg))
	},
	"postPath": PostPath,
	"iso": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
}

var (
	partials = template.Must(template.New("partials").Funcs(funcs).ParseFS(templateFS, partialsFile))
	pages    = map[string]*template.Template{}
)

func init() {
	for _, name := range []string{"home", "post", "fallback", "notfound", "servererror"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, layoutFile, partialsFile, "templates/"+name+".html"))
	}
}

func page(name string, data pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

func partial(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return partials.ExecuteTemplate(w, name, data)
	})
}

func newData(site SiteConfig, meta PageMeta) pageData {
	if meta.Title == "" {
		meta.Title = site.Name
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	return pageData{Site: site, L: NewLocale(site.Locale, site.Location), Meta: meta}
}

// Home renders the post listing.
func Home(site SiteConfig, listing Listing, preview bool) templ.Component {
	d := newData(site, PageMeta{
		Description: site.Description,
		URL:         BuildURL(site.URL),
		JSONLD:      WebsiteJsonLD(site),
	})
	d.Listing = listing
	d.Preview = preview
	return page("home", d)
}

// Posts renders the listing items and the next load-more control, without
// the layout. It is the response to a load-more request.
func Posts(site SiteConfig, listing Listing) templ.Component {
	d := newData(site, PageMeta{})
	d.Listing = listing
	return partial("items", d)
}

// PostPage renders a single post.
func PostPage(site SiteConfig, post Post, preview bool) templ.Component {
	d := newData(site, PageMeta{
		Title:       post.Title + " | " + site.Name,
		Description: post.Subtitle,
		URL:         BuildURL(site.URL, "post", post.UID),
		OGType:      "article",
		Image:       post.BannerURL,
		JSONLD:      BlogPostingJsonLD(site, post),
	})
	d.Post = post
	d.Preview = preview
	return page("post", d)
}

// Fallback is served while a post page is generated in the background.
// It reloads itself until the real page is ready.
func Fallback(site SiteConfig) templ.Component {
	return page("fallback", newData(site, PageMeta{Refresh: "2"}))
}

func NotFound(site SiteConfig) templ.Component {
	d := newData(site, PageMeta{})
	d.Meta.Title = d.L.NotFound + " | " + site.Name
	return page("notfound", d)
}

func ServerError(site SiteConfig) templ.Component {
	d := newData(site, PageMeta{})
	d.Meta.Title = d.L.ServerError + " | " + site.Name
	return page("servererror", d)
}

// PreviewButton renders the control that leaves preview mode.
func PreviewButton(label string) templ.Component {
	return partial("preview-button", label)
}
