package pubfront

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/eringen/pubfront/prismic"
	"github.com/eringen/pubfront/views"
)

// PostType is the CMS custom type holding blog posts.
const PostType = "posts"

// DefaultPageSize is the listing page size when none is configured.
const DefaultPageSize = 20

// ErrPostNotFound is returned when a uid is not among the CMS posts.
var ErrPostNotFound = errors.New("pubfront: post not found")

// listFields are the only fields the listing needs.
var listFields = []string{PostType + ".title", PostType + ".subtitle", PostType + ".author"}

// postOrdering is the order of the listing and of prev/next navigation.
var postOrdering = []string{"document.first_publication_date desc"}

// ContentSource is the part of the CMS client the loaders use.
type ContentSource interface {
	PageFetcher
	Query(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) (*prismic.Response, error)
	QueryAll(ctx context.Context, preds []prismic.Predicate, opts prismic.QueryOptions) ([]prismic.Document, error)
}

func postsPredicate() []prismic.Predicate {
	return []prismic.Predicate{prismic.At("document.type", PostType)}
}

// LoadPostList loads one page of post summaries. An empty ref reads the
// published content; a preview ref reads drafts.
func LoadPostList(ctx context.Context, src ContentSource, ref string, pageSize, page int) (Pagination, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	resp, err := src.Query(ctx, postsPredicate(), prismic.QueryOptions{
		Fetch:     listFields,
		PageSize:  pageSize,
		Page:      page,
		Ref:       ref,
		Orderings: postOrdering,
	})
	if err != nil {
		return Pagination{}, fmt.Errorf("load post list: %w", err)
	}
	return toPagination(resp)
}

// LoadAllPosts returns every post summary in CMS order.
func LoadAllPosts(ctx context.Context, src ContentSource, ref string) ([]PostSummary, error) {
	docs, err := src.QueryAll(ctx, postsPredicate(), prismic.QueryOptions{
		Fetch:     listFields,
		Ref:       ref,
		Orderings: postOrdering,
	})
	if err != nil {
		return nil, fmt.Errorf("load all posts: %w", err)
	}
	return toSummaries(docs)
}

// StaticPaths returns the route of every post known to the CMS.
func StaticPaths(ctx context.Context, src ContentSource) ([]string, error) {
	posts, err := LoadAllPosts(ctx, src, "")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(posts))
	for _, p := range posts {
		if p.UID == "" {
			continue
		}
		paths = append(paths, PostPath(p.UID))
	}
	return paths, nil
}

// LoadPost loads the post with uid together with its neighbours. All posts
// are queried so the neighbours can be found by position.
func LoadPost(ctx context.Context, src ContentSource, uid, ref string) (PostPage, error) {
	docs, err := src.QueryAll(ctx, postsPredicate(), prismic.QueryOptions{
		Ref:       ref,
		Orderings: postOrdering,
	})
	if err != nil {
		return PostPage{}, fmt.Errorf("load post %q: %w", uid, err)
	}
	seq, err := toSummaries(docs)
	if err != nil {
		return PostPage{}, err
	}
	for i, doc := range docs {
		if doc.UID != uid {
			continue
		}
		post, err := toDetail(doc)
		if err != nil {
			return PostPage{}, err
		}
		return PostPage{Post: post, Neighbors: FindNeighbors(seq, i)}, nil
	}
	return PostPage{}, fmt.Errorf("%w: %s", ErrPostNotFound, uid)
}

// PostPath is the route of a post page.
func PostPath(uid string) string {
	return views.PostPath(uid)
}

// PostUID extracts the uid from a post route, or "" if path is not one.
func PostUID(route string) string {
	dir, uid := path.Split(path.Clean(route))
	if dir != "/post/" || uid == "" {
		return ""
	}
	return uid
}

// LinkResolver maps a CMS document to its route on the site.
func LinkResolver(doc prismic.Document) string {
	if doc.Type == PostType && doc.UID != "" {
		return PostPath(doc.UID)
	}
	return "/"
}

func toPagination(resp *prismic.Response) (Pagination, error) {
	results, err := toSummaries(resp.Results)
	if err != nil {
		return Pagination{}, err
	}
	return Pagination{Results: results, NextPage: resp.Next()}, nil
}

func toSummaries(docs []prismic.Document) ([]PostSummary, error) {
	out := make([]PostSummary, 0, len(docs))
	for _, doc := range docs {
		s, err := toSummary(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toSummary(doc prismic.Document) (PostSummary, error) {
	var data postData
	if err := doc.Decode(&data); err != nil {
		return PostSummary{}, err
	}
	return PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Time,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}, nil
}

func toDetail(doc prismic.Document) (PostDetail, error) {
	var data postData
	if err := doc.Decode(&data); err != nil {
		return PostDetail{}, err
	}
	post := PostDetail{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublicationDate.Time,
		LastPublicationDate:  doc.LastPublicationDate.Time,
		Title:                data.Title,
		Subtitle:             data.Subtitle,
		Author:               data.Author,
	}
	if data.Banner != nil {
		post.Banner = Banner{URL: data.Banner.URL, Alt: data.Banner.Alt}
	}
	for _, c := range data.Content {
		post.Content = append(post.Content, Section{Heading: c.Heading, Body: c.Body})
	}
	return post, nil
}
