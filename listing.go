package pubfront

import (
	"context"

	"github.com/eringen/pubfront/prismic"
)

// PageFetcher fetches a CMS next-page URL.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*prismic.Response, error)
}

// Listing is the state of the post list page: the posts shown so far and
// the cursor of the next page.
type Listing struct {
	Posts    []PostSummary
	NextPage string
}

// NewListing starts a listing from the first loaded page.
func NewListing(p Pagination) *Listing {
	return &Listing{Posts: p.Results, NextPage: p.NextPage}
}

// HasMore reports whether the load-more control should be shown.
func (l *Listing) HasMore() bool {
	return l.NextPage != ""
}

// LoadMore fetches the next page, appends its posts and moves the cursor.
// Without a cursor it does nothing. On error the listing is left unchanged.
func (l *Listing) LoadMore(ctx context.Context, f PageFetcher) error {
	if !l.HasMore() {
		return nil
	}
	page, err := fetchPage(ctx, f, l.NextPage)
	if err != nil {
		return err
	}
	l.Posts = append(l.Posts, page.Results...)
	l.NextPage = page.NextPage
	return nil
}

func fetchPage(ctx context.Context, f PageFetcher, cursor string) (Pagination, error) {
	resp, err := f.FetchPage(ctx, cursor)
	if err != nil {
		return Pagination{}, err
	}
	return toPagination(resp)
}
