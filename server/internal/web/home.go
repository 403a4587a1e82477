package web

import (
	"embed"
	"io/fs"
	"net/http"
)

// Prefix is the URL path the front-end is mounted under.
const Prefix = "/home"

//go:embed public
var embedded embed.FS

// Handler serves the front-end from dir, or from the embedded page when dir
// is empty. Mount it at both Prefix and Prefix+"/".
func Handler(dir string) http.Handler {
	var root http.FileSystem
	if dir != "" {
		root = http.Dir(dir)
	} else {
		sub, err := fs.Sub(embedded, "public")
		if err != nil {
			// The embed directive guarantees the directory exists.
			panic(err)
		}
		root = http.FS(sub)
	}
	return http.StripPrefix(Prefix, http.FileServer(root))
}
