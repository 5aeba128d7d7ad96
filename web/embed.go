package web

import "embed"

// TemplatesFS embeds the server-rendered pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds css and js served under /static.
//
//go:embed static/*
var StaticFS embed.FS
