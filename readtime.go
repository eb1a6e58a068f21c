package pubfront

import (
	"strings"

	"github.com/eringen/pubfront/richtext"
)

const wordsPerMinute = 200

// WordCount counts whitespace-delimited words in every section heading and
// the plain text of every section body.
func (p PostDetail) WordCount() int {
	words := 0
	for _, s := range p.Content {
		words += len(strings.Fields(s.Heading))
		words += len(strings.Fields(richtext.AsText(s.Body)))
	}
	return words
}

// ReadingTime is the estimated reading time in minutes, rounded up.
// A post without words reads in 0 minutes.
func (p PostDetail) ReadingTime() int {
	return (p.WordCount() + wordsPerMinute - 1) / wordsPerMinute
}

// Edited reports whether the post was republished after its first
// publication. Timestamps are compared exactly, not by date.
func (p PostDetail) Edited() bool {
	return !p.FirstPublicationDate.Equal(p.LastPublicationDate)
}
