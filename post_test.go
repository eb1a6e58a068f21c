package pubfront

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eringen/pubfront/richtext"
)

func section(heading, body string) Section {
	return Section{Heading: heading, Body: richtext.RichText{{Type: richtext.Paragraph, Text: body}}}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		name    string
		content []Section
		want    int
	}{
		{"no sections", nil, 0},
		{"empty section", []Section{{}}, 0},
		{"one word", []Section{section("", "hello")}, 1},
		{"exactly 200", []Section{section("", words(200))}, 1},
		{"heading words count", []Section{section("two words", words(199))}, 2},
		{"201 across sections", []Section{section("", words(100)), section("", words(101))}, 2},
		{"whitespace runs", []Section{section("  a \n b  ", "c\t\td")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PostDetail{Content: tt.content}
			assert.Equal(t, tt.want, p.ReadingTime())
		})
	}
}

func TestWordCountUsesBodyText(t *testing.T) {
	p := PostDetail{Content: []Section{{
		Heading: "Space travel",
		Body: richtext.RichText{
			{Type: richtext.Paragraph, Text: "one two"},
			{Type: richtext.ListItem, Text: "three"},
		},
	}}}
	assert.Equal(t, 5, p.WordCount())
}

func TestEdited(t *testing.T) {
	first := time.Date(2021, time.March, 15, 19, 25, 0, 0, time.UTC)

	assert.False(t, PostDetail{FirstPublicationDate: first, LastPublicationDate: first}.Edited())
	assert.True(t, PostDetail{FirstPublicationDate: first, LastPublicationDate: first.Add(time.Second)}.Edited())
	// Same instant in another zone is not an edit.
	assert.False(t, PostDetail{
		FirstPublicationDate: first,
		LastPublicationDate:  first.In(time.FixedZone("BRT", -3*60*60)),
	}.Edited())
}

func TestFindNeighbors(t *testing.T) {
	seq := []PostSummary{
		{UID: "a", Title: "A"},
		{UID: "b", Title: "B"},
		{UID: "c", Title: "C"},
	}

	mid := FindNeighbors(seq, 1)
	assert.Equal(t, "a", *mid.Previous.UID)
	assert.Equal(t, "A", *mid.Previous.Title)
	assert.Equal(t, "c", *mid.Next.UID)

	first := FindNeighbors(seq, 0)
	assert.False(t, first.Previous.Present())
	assert.Equal(t, "b", *first.Next.UID)

	last := FindNeighbors(seq, 2)
	assert.Equal(t, "b", *last.Previous.UID)
	assert.False(t, last.Next.Present())

	single := FindNeighbors(seq[:1], 0)
	assert.False(t, single.Previous.Present())
	assert.False(t, single.Next.Present())

	outside := FindNeighbors(seq, 7)
	assert.False(t, outside.Previous.Present())
	assert.False(t, outside.Next.Present())
}

func TestNeighborsEncodeNullPairs(t *testing.T) {
	seq := []PostSummary{{UID: "a", Title: "A"}, {UID: "b", Title: "B"}}
	out, err := json.Marshal(FindNeighbors(seq, 0))
	assert.NoError(t, err)
	assert.JSONEq(t, `{"previousPost":{"title":null,"uid":null},"nextPost":{"title":"B","uid":"b"}}`, string(out))
}
