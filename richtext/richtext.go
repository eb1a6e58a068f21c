// Package richtext renders CMS structured text (a list of typed blocks with
// character-offset spans) as HTML or plain text.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block types.
const (
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// Span types.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// RichText is an ordered list of blocks.
type RichText []Block

// Block is a single structured-text block.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	OEmbed     *OEmbed     `json:"oembed,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OEmbed payload of an embed block.
type OEmbed struct {
	Type        string `json:"type,omitempty"`
	EmbedURL    string `json:"embed_url,omitempty"`
	HTML        string `json:"html,omitempty"`
	ProviderURL string `json:"provider_url,omitempty"`
}

// Span formats Text[Start:End]. Offsets count UTF-16 code units, as the CMS
// produces them.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets and label names.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	Label    string `json:"label,omitempty"`
}

// AsText joins the text of every block with a single space.
func AsText(rt RichText) string {
	parts := make([]string, 0, len(rt))
	for _, b := range rt {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// AsHTML renders rt to an HTML string. Consecutive list items are grouped
// into a single <ul> or <ol>.
func AsHTML(rt RichText) string {
	var buf bytes.Buffer
	Render(&buf, rt)
	return buf.String()
}

// Component returns rt as a templ.Component.
func Component(rt RichText) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, rt)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of rt to buf.
func Render(buf *bytes.Buffer, rt RichText) {
	list := ""
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list == tag {
			return
		}
		flushList()
		buf.WriteString("<" + tag + ">")
		list = tag
	}

	for _, b := range rt {
		switch b.Type {
		case ListItem:
			openList("ul")
			writeTag(buf, "li", b)
			continue
		case OListItem:
			openList("ol")
			writeTag(buf, "li", b)
			continue
		}
		flushList()

		switch b.Type {
		case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
			writeTag(buf, "h"+b.Type[len(b.Type)-1:], b)
		case Paragraph:
			writeTag(buf, "p", b)
		case Preformatted:
			writeTag(buf, "pre", b)
		case Image:
			writeImage(buf, b)
		case Embed:
			writeEmbed(buf, b)
		}
	}
	flushList()
}

func writeTag(buf *bytes.Buffer, tag string, b Block) {
	buf.WriteString("<" + tag + ">")
	buf.WriteString(FormatSpans(b.Text, b.Spans))
	buf.WriteString("</" + tag + ">")
}

func writeImage(buf *bytes.Buffer, b Block) {
	src := safeURL(b.URL)
	if src == "" {
		return
	}
	buf.WriteString(`<p class="block-img"><img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`)
	if b.Dimensions != nil && b.Dimensions.Width > 0 {
		buf.WriteString(` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`)
	}
	buf.WriteString(` loading="lazy" decoding="async"/></p>`)
}

// writeEmbed injects the provider HTML as is. Embeds come from the CMS.
func writeEmbed(buf *bytes.Buffer, b Block) {
	if b.OEmbed == nil {
		return
	}
	buf.WriteString(`<div data-oembed="` + html.EscapeString(b.OEmbed.EmbedURL) + `" data-oembed-type="` + html.EscapeString(b.OEmbed.Type) + `">`)
	buf.WriteString(b.OEmbed.HTML)
	buf.WriteString(`</div>`)
}

// FormatSpans escapes text and wraps span ranges in their HTML elements.
// Overlapping spans are closed and reopened as needed to keep the output
// well formed.
func FormatSpans(text string, spans []Span) string {
	if len(spans) == 0 {
		return escapeLines(text)
	}
	units := utf16.Encode([]rune(text))

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > len(units) || s.Start >= s.End || openTag(s) == "" {
			continue
		}
		valid = append(valid, s)
	}
	// Outer spans first: earlier start, then longer.
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	cuts := map[int]struct{}{0: {}, len(units): {}}
	for _, s := range valid {
		cuts[s.Start] = struct{}{}
		cuts[s.End] = struct{}{}
	}
	bounds := make([]int, 0, len(cuts))
	for p := range cuts {
		bounds = append(bounds, p)
	}
	sort.Ints(bounds)

	var out strings.Builder
	var stack []int // indexes into valid, outermost first
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		active := make(map[int]bool)
		for idx, s := range valid {
			if s.Start <= from && s.End >= to {
				active[idx] = true
			}
		}
		keep := 0
		for keep < len(stack) && active[stack[keep]] {
			keep++
		}
		for j := len(stack) - 1; j >= keep; j-- {
			out.WriteString(closeTag(valid[stack[j]]))
		}
		stack = stack[:keep]
		open := make(map[int]bool, len(stack))
		for _, idx := range stack {
			open[idx] = true
		}
		for idx := range valid {
			if active[idx] && !open[idx] {
				out.WriteString(openTag(valid[idx]))
				stack = append(stack, idx)
			}
		}
		out.WriteString(escapeLines(string(utf16.Decode(units[from:to]))))
	}
	for j := len(stack) - 1; j >= 0; j-- {
		out.WriteString(closeTag(valid[stack[j]]))
	}
	return out.String()
}

func openTag(s Span) string {
	switch s.Type {
	case Strong:
		return "<strong>"
	case Em:
		return "<em>"
	case Label:
		name := ""
		if s.Data != nil {
			name = s.Data.Label
		}
		return `<span class="` + html.EscapeString(name) + `">`
	case Hyperlink:
		if s.Data == nil {
			return ""
		}
		href := safeURL(s.Data.URL)
		if href == "" {
			return ""
		}
		attrs := ""
		if s.Data.Target != "" {
			attrs = ` target="` + html.EscapeString(s.Data.Target) + `" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`
	}
	return ""
}

func closeTag(s Span) string {
	switch s.Type {
	case Strong:
		return "</strong>"
	case Em:
		return "</em>"
	case Label:
		return "</span>"
	case Hyperlink:
		return "</a>"
	}
	return ""
}

func escapeLines(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br />")
}

func safeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
