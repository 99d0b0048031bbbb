// Package web embeds the static landing page served at "/".
package web

import (
	"embed"
	"io/fs"
)

//go:embed site
var content embed.FS

// Site returns the landing page files rooted at the site directory.
func Site() fs.FS {
	sub, err := fs.Sub(content, "site")
	if err != nil {
		// The directory is compiled in, so this only fails on a broken build.
		panic(err)
	}
	return sub
}
