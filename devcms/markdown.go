package devcms

import (
	"strings"
	"unicode/utf16"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/eringen/pubfront/richtext"
)

// Section is one "##" heading of an imported post and the blocks under it.
// Content before the first "##" lands in a section with an empty heading.
type Section struct {
	Heading string            `json:"heading"`
	Body    richtext.RichText `json:"body"`
}

// ImageFunc maps an image destination found in Markdown to the URL the CMS
// serves and, when known, its dimensions.
type ImageFunc func(dest string) (string, *richtext.Dimensions)

var markdown = goldmark.New()

// ParseMarkdown converts a Markdown body into post sections. images may be
// nil, in which case destinations are kept as written.
func ParseMarkdown(src []byte, images ImageFunc) []Section {
	doc := markdown.Parser().Parse(text.NewReader(src))
	cv := converter{src: src, images: images}

	var out []Section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level == 2 {
			out = append(out, Section{Heading: cv.plain(h), Body: richtext.RichText{}})
			continue
		}
		blocks := cv.blocks(n)
		if len(blocks) == 0 {
			continue
		}
		if len(out) == 0 {
			out = append(out, Section{Body: richtext.RichText{}})
		}
		last := &out[len(out)-1]
		last.Body = append(last.Body, blocks...)
	}
	return out
}

type converter struct {
	src    []byte
	images ImageFunc
}

var headingTypes = [...]string{
	richtext.Heading1, richtext.Heading2, richtext.Heading3,
	richtext.Heading4, richtext.Heading5, richtext.Heading6,
}

func (cv converter) blocks(n ast.Node) []richtext.Block {
	switch n := n.(type) {
	case *ast.Heading:
		return []richtext.Block{cv.inline(headingTypes[n.Level-1], n)}
	case *ast.Paragraph, *ast.TextBlock:
		if img, ok := n.FirstChild().(*ast.Image); ok && n.ChildCount() == 1 {
			return []richtext.Block{cv.image(img)}
		}
		return []richtext.Block{cv.inline(richtext.Paragraph, n)}
	case *ast.List:
		typ := richtext.ListItem
		if n.IsOrdered() {
			typ = richtext.OListItem
		}
		var out []richtext.Block
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				switch c.(type) {
				case *ast.Paragraph, *ast.TextBlock:
					out = append(out, cv.inline(typ, c))
				default:
					out = append(out, cv.blocks(c)...)
				}
			}
		}
		return out
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(cv.src))
		}
		return []richtext.Block{{Type: richtext.Preformatted, Text: strings.TrimRight(b.String(), "\n")}}
	case *ast.Blockquote:
		var out []richtext.Block
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, cv.blocks(c)...)
		}
		return out
	}
	return nil
}

func (cv converter) inline(typ string, n ast.Node) richtext.Block {
	b := inlineBuilder{src: cv.src}
	b.children(n)
	return richtext.Block{Type: typ, Text: b.text.String(), Spans: b.spans}
}

func (cv converter) plain(n ast.Node) string {
	b := inlineBuilder{src: cv.src}
	b.children(n)
	return b.text.String()
}

func (cv converter) image(img *ast.Image) richtext.Block {
	block := richtext.Block{
		Type: richtext.Image,
		URL:  string(img.Destination),
		Alt:  cv.plain(img),
	}
	if cv.images != nil {
		block.URL, block.Dimensions = cv.images(block.URL)
	}
	return block
}

// inlineBuilder flattens inline nodes into text and spans. Span offsets
// count UTF-16 code units.
type inlineBuilder struct {
	src   []byte
	text  strings.Builder
	pos   int
	spans []richtext.Span
}

func (b *inlineBuilder) write(s string) {
	b.text.WriteString(s)
	for _, r := range s {
		b.pos += utf16.RuneLen(r)
	}
}

func (b *inlineBuilder) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		b.node(c)
	}
}

func (b *inlineBuilder) node(n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		b.write(string(n.Segment.Value(b.src)))
		switch {
		case n.HardLineBreak():
			b.write("\n")
		case n.SoftLineBreak():
			b.write(" ")
		}
	case *ast.String:
		b.write(string(n.Value))
	case *ast.Emphasis:
		typ := richtext.Em
		if n.Level >= 2 {
			typ = richtext.Strong
		}
		b.span(typ, nil, n)
	case *ast.Link:
		b.span(richtext.Hyperlink, &richtext.SpanData{LinkType: "Web", URL: string(n.Destination)}, n)
	case *ast.AutoLink:
		start := b.pos
		b.write(string(n.Label(b.src)))
		b.add(start, richtext.Hyperlink, &richtext.SpanData{LinkType: "Web", URL: string(n.URL(b.src))})
	case *ast.CodeSpan:
		b.span(richtext.Label, &richtext.SpanData{Label: "code"}, n)
	case *ast.RawHTML:
	default:
		b.children(n)
	}
}

func (b *inlineBuilder) span(typ string, data *richtext.SpanData, n ast.Node) {
	start := b.pos
	b.children(n)
	b.add(start, typ, data)
}

func (b *inlineBuilder) add(start int, typ string, data *richtext.SpanData) {
	if b.pos > start {
		b.spans = append(b.spans, richtext.Span{Start: start, End: b.pos, Type: typ, Data: data})
	}
}
