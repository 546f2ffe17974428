// Package web holds the embedded page templates and static assets.
package web

import "embed"

// TemplatesFS embeds the HTML page templates and the shared partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and client script.
//
//go:embed static/*
var StaticFS embed.FS
