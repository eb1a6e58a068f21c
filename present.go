package pubfront

import "github.com/eringen/pubfront/views"

func listingView(posts []PostSummary, next string, nextNum int) views.Listing {
	l := views.Listing{NextPage: next, NextNum: nextNum}
	for _, p := range posts {
		l.Posts = append(l.Posts, views.Summary{
			UID:       p.UID,
			Title:     p.Title,
			Subtitle:  p.Subtitle,
			Author:    p.Author,
			Published: p.FirstPublicationDate,
		})
	}
	return l
}

func postView(pp PostPage) views.Post {
	p := pp.Post
	v := views.Post{
		UID:         p.UID,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Author:      p.Author,
		BannerURL:   p.Banner.URL,
		BannerAlt:   p.Banner.Alt,
		Published:   p.FirstPublicationDate,
		Updated:     p.LastPublicationDate,
		Edited:      p.Edited(),
		ReadingTime: p.ReadingTime(),
		Previous:    navView(pp.Neighbors.Previous),
		Next:        navView(pp.Neighbors.Next),
	}
	if v.BannerAlt == "" {
		v.BannerAlt = "Banner"
	}
	for _, s := range p.Content {
		v.Sections = append(v.Sections, views.Section{Heading: s.Heading, Body: s.Body})
	}
	return v
}

func navView(l NavLink) *views.Link {
	if !l.Present() {
		return nil
	}
	title := ""
	if l.Title != nil {
		title = *l.Title
	}
	return &views.Link{UID: *l.UID, Title: title}
}
