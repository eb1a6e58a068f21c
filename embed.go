package pubfront

import "embed"

// EmbeddedAssets contains the static assets shipped with the site:
// style.css and pager.js (the load-more script).
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
