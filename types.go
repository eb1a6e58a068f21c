package pubfront

import (
	"time"

	"github.com/eringen/pubfront/richtext"
)

// PostSummary is a post as it appears in the listing.
type PostSummary struct {
	UID                  string
	FirstPublicationDate time.Time
	Title                string
	Subtitle             string
	Author               string
}

// Banner is the post header image. A post without one has an empty URL.
type Banner struct {
	URL string
	Alt string
}

// Section is one heading of a post and the rich text under it.
type Section struct {
	Heading string
	Body    richtext.RichText
}

// PostDetail is a fully loaded post.
type PostDetail struct {
	UID                  string
	FirstPublicationDate time.Time
	LastPublicationDate  time.Time
	Title                string
	Subtitle             string
	Author               string
	Banner               Banner
	Content              []Section
}

// Pagination is one page of the post listing. NextPage is the CMS cursor for
// the following page, empty on the last one.
type Pagination struct {
	Results  []PostSummary
	NextPage string
}

// NavLink points at a neighbouring post. Both fields are nil at the ends of
// the sequence and encode as an explicit null pair.
type NavLink struct {
	Title *string `json:"title"`
	UID   *string `json:"uid"`
}

// Neighbors are the posts before and after a post in CMS order.
type Neighbors struct {
	Previous NavLink `json:"previousPost"`
	Next     NavLink `json:"nextPost"`
}

// PostPage is everything the post page needs.
type PostPage struct {
	Post      PostDetail
	Neighbors Neighbors
}

// postData is the typed "data" payload of a posts document.
type postData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   *struct {
		URL string `json:"url"`
		Alt string `json:"alt"`
	} `json:"banner"`
	Content []struct {
		Heading string            `json:"heading"`
		Body    richtext.RichText `json:"body"`
	} `json:"content"`
}
