package prismic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the timestamp format used by the CMS for publication dates.
const TimeLayout = "2006-01-02T15:04:05-0700"

// Time is a publication timestamp. The zero value encodes as null.
type Time struct {
	time.Time
}

// UnmarshalJSON accepts the CMS layout, RFC 3339, or null.
func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the CMS layout in UTC.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(TimeLayout))
}

// ParseTime parses a CMS timestamp.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("prismic: invalid time %q", s)
}

// Document is a single CMS document. Data holds the type-specific fields
// and is decoded on demand with Decode.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid,omitempty"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href,omitempty"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang,omitempty"`
	FirstPublicationDate Time            `json:"first_publication_date"`
	LastPublicationDate  Time            `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Decode unmarshals the document data into v.
func (d Document) Decode(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("prismic: decode %s %q: %w", d.Type, d.UID, err)
	}
	return nil
}

// Response is one page of a document search.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page URL, or "" on the last page.
func (r *Response) Next() string {
	if r == nil || r.NextPage == nil {
		return ""
	}
	return *r.NextPage
}

// Ref is a content release reference advertised by the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef,omitempty"`
}

// API is the document returned by the API root endpoint.
type API struct {
	Refs  []Ref             `json:"refs"`
	Types map[string]string `json:"types,omitempty"`
	Tags  []string          `json:"tags,omitempty"`
}

// Master returns the master ref, if the API advertises one.
func (a API) Master() (string, bool) {
	for _, r := range a.Refs {
		if r.IsMasterRef {
			return r.Ref, true
		}
	}
	return "", false
}

// LinkResolver maps a document to a site-relative URL.
type LinkResolver func(doc Document) string

// Predicate is a query filter such as at(document.type, "posts").
type Predicate string

// At matches documents where path equals value.
func At(path, value string) Predicate {
	return Predicate(fmt.Sprintf("[at(%s, %s)]", path, quote(value)))
}

// Not matches documents where path differs from value.
func Not(path, value string) Predicate {
	return Predicate(fmt.Sprintf("[not(%s, %s)]", path, quote(value)))
}

// Any matches documents where path equals one of values.
func Any(path string, values ...string) Predicate {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return Predicate(fmt.Sprintf("[any(%s, [%s])]", path, strings.Join(quoted, ", ")))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Query joins predicates into the q parameter value.
func Query(preds ...Predicate) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range preds {
		b.WriteString(string(p))
	}
	b.WriteByte(']')
	return b.String()
}
