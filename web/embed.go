// Package web holds the embedded landing and mint pages.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
)

const (
	IndexPage = "index.html"
	MintPage  = "mint.html"
)

//go:embed static/*
var staticFiles embed.FS

var assets = mustSub(staticFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Static serves everything under static/ for the /static/ route.
func Static() http.FileSystem {
	return http.FS(assets)
}

// Page returns one embedded HTML page by file name.
func Page(name string) ([]byte, error) {
	if path.Ext(name) != ".html" || path.Base(name) != name {
		return nil, fmt.Errorf("page %q: %w", name, fs.ErrNotExist)
	}
	return fs.ReadFile(assets, name)
}
