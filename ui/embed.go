// Package ui holds the server-rendered HTML templates.
package ui

import "embed"

//go:embed templates
var Files embed.FS
