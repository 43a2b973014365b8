// Package web serves the single-page app bundled with the token server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

//go:embed static
var embedded embed.FS

// Handler serves files from dir, or the embedded app when dir is empty.
func Handler(dir string) (http.Handler, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", dir)
		}
		return http.FileServer(http.Dir(dir)), nil
	}

	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, fmt.Errorf("embedded app: %w", err)
	}
	return http.FileServer(http.FS(sub)), nil
}
