package chatwidget

import "embed"

// TemplateFS holds the page, layout and partial templates of the widget.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS holds the widget's script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
