package pubfront

import (
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/views"
)

const feedLimit = 20

func (a *App) buildFeed(posts []PostSummary) *feeds.Feed {
	base := a.Config.URL
	feed := &feeds.Feed{
		Title:       a.Config.Name,
		Link:        &feeds.Link{Href: views.BuildURL(base)},
		Description: a.Config.Description,
		Created:     time.Now(),
	}
	if a.Config.Author != "" {
		feed.Author = &feeds.Author{Name: a.Config.Author}
	}
	if len(posts) > feedLimit {
		posts = posts[:feedLimit]
	}
	for _, p := range posts {
		postURL := views.BuildURL(base, "post", p.UID)
		item := &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: postURL},
			Description: p.Subtitle,
			Id:          postURL,
			Created:     p.FirstPublicationDate,
		}
		if p.Author != "" {
			item.Author = &feeds.Author{Name: p.Author}
		}
		feed.Items = append(feed.Items, item)
	}
	if len(posts) > 0 {
		feed.Created = posts[0].FirstPublicationDate
	}
	return feed
}

func (a *App) renderRSS(c echo.Context, posts []PostSummary) error {
	rss, err := a.buildFeed(posts).ToRss()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
