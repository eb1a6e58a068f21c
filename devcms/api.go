package devcms

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubfront/prismic"
)

const (
	defaultPageSize = 20
	maxPageSize     = prismic.MaxPageSize
)

var (
	// ErrUnsupported is returned for query features the development CMS
	// does not implement.
	ErrUnsupported = errors.New("devcms: unsupported query")

	predicatePattern = regexp.MustCompile(`\[\s*at\(\s*([A-Za-z0-9_.]+)\s*,\s*("(?:[^"\\]|\\.)*")\s*\)\s*\]`)
)

// search is a parsed documents/search request.
type search struct {
	filter   Filter
	ref      string
	page     int
	pageSize int
	fetch    map[string][]string // type -> fields
}

func (s *Server) handleAPI(c echo.Context) error {
	master, preview, err := s.store.Refs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prismic.API{
		Refs: []prismic.Ref{
			{ID: "master", Ref: master, Label: "Master", IsMasterRef: true},
			{ID: "preview", Ref: preview, Label: "Preview"},
		},
		Types: map[string]string{"posts": "Posts"},
		Tags:  []string{},
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	q, err := parseSearch(c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	_, preview, err := s.store.Refs(ctx)
	if err != nil {
		return err
	}
	// Only the current content is kept, so any other ref reads the master.
	q.filter.Drafts = q.ref == preview
	q.filter.Limit = q.pageSize
	q.filter.Offset = (q.page - 1) * q.pageSize

	recs, total, err := s.store.Search(ctx, q.filter)
	if errors.Is(err, ErrUnsupported) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}

	resp := prismic.Response{
		Page:             q.page,
		ResultsPerPage:   q.pageSize,
		ResultsSize:      len(recs),
		TotalResultsSize: total,
		TotalPages:       (total + q.pageSize - 1) / q.pageSize,
		Results:          make([]prismic.Document, 0, len(recs)),
	}
	for _, r := range recs {
		doc := r.Document()
		if fields := q.fetch[doc.Type]; len(fields) > 0 {
			if doc.Data, err = pick(doc.Data, fields); err != nil {
				return err
			}
		}
		resp.Results = append(resp.Results, doc)
	}
	if q.page < resp.TotalPages {
		next := pageURL(c, q.page+1)
		resp.NextPage = &next
	}
	if q.page > 1 {
		prev := pageURL(c, q.page-1)
		resp.PrevPage = &prev
	}
	return c.JSON(http.StatusOK, resp)
}

// handlePreview sends the editor to the front-end preview route for a
// document, carrying the preview ref as the token.
func (s *Server) handlePreview(c echo.Context) error {
	_, preview, err := s.store.Refs(c.Request().Context())
	if err != nil {
		return err
	}
	v := url.Values{}
	v.Set("token", preview)
	if id := c.QueryParam("documentId"); id != "" {
		v.Set("documentId", id)
	}
	target := strings.TrimRight(s.cfg.FrontendURL, "/") + "/api/preview?" + v.Encode()
	return c.Redirect(http.StatusFound, target)
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.AccessToken == "" {
			return next(c)
		}
		got := c.QueryParam("access_token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AccessToken)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		return next(c)
	}
}

func parseSearch(v url.Values) (search, error) {
	q := search{page: 1, pageSize: defaultPageSize}
	q.ref = v.Get("ref")
	if q.ref == "" {
		return q, errors.New("ref is required")
	}
	if s := v.Get("pageSize"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPageSize {
			return q, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}
		q.pageSize = n
	}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, errors.New("page must be a positive integer")
		}
		q.page = n
	}
	if err := parsePredicates(v.Get("q"), &q.filter); err != nil {
		return q, err
	}
	orders, err := parseOrderings(v.Get("orderings"))
	if err != nil {
		return q, err
	}
	q.filter.Order = orders
	q.fetch = parseFetch(v.Get("fetch"))
	return q, nil
}

// parsePredicates fills f from a q value such as
// [[at(document.type, "posts")][at(my.posts.uid, "hello")]].
func parsePredicates(raw string, f *Filter) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	rest := predicatePattern.ReplaceAllString(raw, "")
	if strings.Trim(rest, "[] ") != "" {
		return fmt.Errorf("%w: predicate %s", ErrUnsupported, raw)
	}
	for _, m := range predicatePattern.FindAllStringSubmatch(raw, -1) {
		path := m[1]
		value, err := strconv.Unquote(m[2])
		if err != nil {
			return fmt.Errorf("invalid predicate value %s", m[2])
		}
		switch {
		case path == "document.type":
			f.Type = value
		case path == "document.id":
			f.ID = value
		case strings.HasPrefix(path, "my.") && strings.HasSuffix(path, ".uid"):
			docType := strings.TrimSuffix(strings.TrimPrefix(path, "my."), ".uid")
			if docType == "" || strings.Contains(docType, ".") {
				return fmt.Errorf("%w: path %s", ErrUnsupported, path)
			}
			f.Type = docType
			f.UID = value
		default:
			return fmt.Errorf("%w: path %s", ErrUnsupported, path)
		}
	}
	return nil
}

// parseOrderings reads [document.first_publication_date desc, ...].
func parseOrderings(raw string) ([]Order, error) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(raw), "["), "]"))
	if raw == "" {
		return nil, nil
	}
	var orders []Order
	for _, part := range strings.Split(raw, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, fmt.Errorf("invalid ordering %q", part)
		}
		o := Order{Field: strings.TrimPrefix(fields[0], "document.")}
		if len(fields) == 2 {
			switch fields[1] {
			case "desc":
				o.Desc = true
			case "asc":
			default:
				return nil, fmt.Errorf("invalid ordering %q", part)
			}
		}
		if _, ok := orderColumns[o.Field]; !ok {
			return nil, fmt.Errorf("%w: ordering %s", ErrUnsupported, fields[0])
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func parseFetch(raw string) map[string][]string {
	if raw == "" {
		return nil
	}
	out := make(map[string][]string)
	for _, f := range strings.Split(raw, ",") {
		docType, field, ok := strings.Cut(strings.TrimSpace(f), ".")
		if !ok || docType == "" || field == "" {
			continue
		}
		out[docType] = append(out[docType], field)
	}
	return out
}

// pick keeps only fields of a document's data.
func pick(data json.RawMessage, fields []string) (json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	kept := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := all[f]; ok {
			kept[f] = v
		}
	}
	return json.Marshal(kept)
}

// pageURL is the current request URL pointing at page. The access token is
// left for the client to add.
func pageURL(c echo.Context, page int) string {
	req := c.Request()
	q := req.URL.Query()
	q.Del("access_token")
	q.Set("page", strconv.Itoa(page))
	u := url.URL{
		Scheme:   c.Scheme(),
		Host:     req.Host,
		Path:     req.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
