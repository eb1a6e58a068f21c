package views

import (
	"html/template"
	"time"

	"github.com/eringen/pubfront/comments"
	"github.com/eringen/pubfront/richtext"
)

// SiteConfig holds the site-wide settings templates need.
// Every handler passes this to templates so nothing is hardcoded.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
	Locale      string         // BCP 47 tag, e.g. "pt-BR"
	Location    *time.Location // dates are shown in this zone; nil keeps the CMS offset
	Comments    comments.Config
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	Refresh     string // meta refresh seconds, fallback pages only
	JSONLD      template.JS
}

// Summary is a post as shown in the listing.
type Summary struct {
	UID       string
	Title     string
	Subtitle  string
	Author    string
	Published time.Time
}

// Listing is the post list plus its pagination cursor.
type Listing struct {
	Posts    []Summary
	NextPage string // opaque CMS cursor, empty when there is nothing more
	NextNum  int    // page number for the no-script link
}

// Link points to a neighbouring post.
type Link struct {
	UID   string
	Title string
}

// Section is one heading and its rich-text body.
type Section struct {
	Heading string
	Body    richtext.RichText
}

// Post is a fully loaded post ready for rendering.
type Post struct {
	UID         string
	Title       string
	Subtitle    string
	Author      string
	BannerURL   string
	BannerAlt   string
	Published   time.Time
	Updated     time.Time
	Edited      bool
	ReadingTime int
	Sections    []Section
	Previous    *Link
	Next        *Link
}

type pageData struct {
	Site    SiteConfig
	L       Locale
	Meta    PageMeta
	Preview bool
	Listing Listing
	Post    Post
}
