// Package web embeds the wiki's templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// TemplateFS holds templates/layouts and templates/pages, as read by view.New.
var TemplateFS fs.FS = templateFS

// Static returns the assets rooted at static/, ready to serve under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// fs.Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
