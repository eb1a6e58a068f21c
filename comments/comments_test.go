package comments

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page() *Node {
	return Element("main", "",
		Element("article", "post"),
		Element("div", DefaultContainerID),
	)
}

func TestMountInjectsOneScript(t *testing.T) {
	root := page()
	h := Use(root, DefaultContainerID, DefaultConfig("owner/blog"))
	h.Mount()

	require.Equal(t, Attached, h.State())
	container := root.FindByID(DefaultContainerID)
	require.Len(t, container.Children, 1)

	script := container.Children[0]
	assert.Equal(t, "script", script.Tag)
	for name, want := range map[string]string{
		"repo":       "owner/blog",
		"issue-term": "pathname",
		"label":      "comment :speech_balloon:",
		"theme":      "photon-dark",
	} {
		got, ok := script.Attr(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	// mounting twice does not inject a second script
	h.Mount()
	assert.Len(t, container.Children, 1)
}

func TestUnmountRemovesExactlyOneChild(t *testing.T) {
	root := page()
	container := root.FindByID(DefaultContainerID)
	container.AppendChild(Element("p", "placeholder"))

	h := Use(root, DefaultContainerID, DefaultConfig("owner/blog"))
	h.Mount()
	require.Len(t, container.Children, 2)

	h.Unmount()
	assert.Equal(t, Unattached, h.State())
	assert.Len(t, container.Children, 1)

	// unmounting an unattached hook is a no-op
	h.Unmount()
	assert.Len(t, container.Children, 1)
}

func TestMountWithoutContainerIsNoop(t *testing.T) {
	root := Element("main", "")
	h := Use(root, DefaultContainerID, DefaultConfig("owner/blog"))
	h.Mount()
	assert.Equal(t, Unattached, h.State())
	assert.Empty(t, root.Children)
}

func TestSetTargetMovesScript(t *testing.T) {
	root := Element("main", "", Element("div", "a"), Element("div", "b"))
	h := Use(root, "a", DefaultConfig("owner/blog"))
	h.Mount()

	h.SetTarget("b")
	assert.Equal(t, "b", h.Target())
	assert.Equal(t, Attached, h.State())
	assert.Empty(t, root.FindByID("a").Children)
	assert.Len(t, root.FindByID("b").Children, 1)

	h.SetTarget("missing")
	assert.Equal(t, Unattached, h.State())
	assert.Empty(t, root.FindByID("b").Children)
}

func TestWidgetRendersContainerAndScript(t *testing.T) {
	var sb strings.Builder
	err := Widget(DefaultContainerID, DefaultConfig("owner/blog")).Render(context.Background(), &sb)
	require.NoError(t, err)

	want := `<div id="comments"><script src="https://utteranc.es/client.js" async repo="owner/blog" issue-term="pathname" label="comment :speech_balloon:" theme="photon-dark" crossorigin="anonymous"></script></div>`
	assert.Equal(t, want, sb.String())
}

func TestWidgetWithoutRepoRendersNothing(t *testing.T) {
	assert.Empty(t, HTML(DefaultContainerID, DefaultConfig("")))
}
