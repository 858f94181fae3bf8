package web

import (
	"embed"
	"io/fs"
)

//go:embed static templates
var content embed.FS

// StaticFS returns the static asset tree.
func StaticFS() fs.FS { return sub("static") }

// TemplatesFS returns the page templates.
func TemplatesFS() fs.FS { return sub("templates") }

func sub(dir string) fs.FS {
	s, err := fs.Sub(content, dir)
	if err != nil {
		// dir is a compile-time constant embedded above
		panic(err)
	}
	return s
}
