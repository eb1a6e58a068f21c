// Package comments mounts the utterances comment widget into a page.
//
// The widget is a third-party script tag injected into a container element.
// A Hook tracks whether the script is attached and mirrors the mount,
// unmount and retarget lifecycle of the hosting view.
package comments

import (
	"bytes"
	"context"
	"io"

	"github.com/a-h/templ"
)

// DefaultContainerID is the element id the post page reserves for comments.
const DefaultContainerID = "comments"

// Config describes the utterances script attributes.
type Config struct {
	Src         string
	Repo        string // GitHub "owner/name" holding the comment issues
	IssueTerm   string
	Label       string
	Theme       string
	CrossOrigin string
}

// DefaultConfig returns the standard utterances setup for repo.
func DefaultConfig(repo string) Config {
	return Config{
		Src:         "https://utteranc.es/client.js",
		Repo:        repo,
		IssueTerm:   "pathname",
		Label:       "comment :speech_balloon:",
		Theme:       "photon-dark",
		CrossOrigin: "anonymous",
	}
}

// Script returns the script node that loads the widget.
func Script(cfg Config) *Node {
	return &Node{
		Tag: "script",
		Attrs: []Attr{
			{Name: "src", Value: cfg.Src},
			{Name: "async", Bare: true},
			{Name: "repo", Value: cfg.Repo},
			{Name: "issue-term", Value: cfg.IssueTerm},
			{Name: "label", Value: cfg.Label},
			{Name: "theme", Value: cfg.Theme},
			{Name: "crossorigin", Value: cfg.CrossOrigin},
		},
	}
}

// State of a Hook.
type State int

const (
	Unattached State = iota
	Attached
)

func (s State) String() string {
	if s == Attached {
		return "attached"
	}
	return "unattached"
}

// Hook injects the widget script into the container with a given id.
type Hook struct {
	cfg       Config
	root      *Node
	target    string
	container *Node
	state     State
}

// Use returns an unattached hook for the container id inside root.
func Use(root *Node, containerID string, cfg Config) *Hook {
	return &Hook{cfg: cfg, root: root, target: containerID}
}

// State reports whether the script is currently attached.
func (h *Hook) State() State { return h.state }

// Target returns the container id the hook is bound to.
func (h *Hook) Target() string { return h.target }

// Mount appends the script to the container. A missing container is a
// silent no-op; there is no retry.
func (h *Hook) Mount() {
	if h.state == Attached {
		return
	}
	container := h.root.FindByID(h.target)
	if container == nil {
		return
	}
	container.AppendChild(Script(h.cfg))
	h.container = container
	h.state = Attached
}

// Unmount removes the first child of the container, which is assumed to be
// the script added by Mount.
func (h *Hook) Unmount() {
	if h.state != Attached {
		return
	}
	h.container.RemoveFirstChild()
	h.container = nil
	h.state = Unattached
}

// SetTarget rebinds the hook to another container id, detaching from the
// old container before attaching to the new one.
func (h *Hook) SetTarget(id string) {
	if id == h.target {
		return
	}
	h.Unmount()
	h.target = id
	h.Mount()
}

// Widget renders a container with the given id and the mounted widget script.
// An empty Repo renders nothing.
func Widget(containerID string, cfg Config) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if cfg.Repo == "" {
			return nil
		}
		root := Element("div", containerID)
		Use(root, containerID, cfg).Mount()
		return Render(w, root)
	})
}

// HTML returns the rendered widget markup.
func HTML(containerID string, cfg Config) string {
	var buf bytes.Buffer
	_ = Widget(containerID, cfg).Render(context.Background(), &buf)
	return buf.String()
}
