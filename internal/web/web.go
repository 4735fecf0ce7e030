// Package web embeds the browser page that draws the simulation.
//
// The page is a thin client: it opens /stream, paints every frame's display
// list onto a canvas and sends the user's actions back over the socket.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var files embed.FS

// Assets returns the static files rooted at the static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}

// Register mounts the page at / and its assets under /static.
func Register(r gin.IRouter) {
	assets := Assets()
	index, err := fs.ReadFile(assets, "index.html")
	if err != nil {
		panic(err)
	}

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	r.StaticFS("/static", http.FS(assets))
}
