package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tazhate/monitorat/config"
)

// dirHandler serves regular files below the directory returned by dir.
// The directory is looked up per request so reloads take effect.
func (s *Server) dirHandler(prefix string, dir func(*config.Config) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, prefix)
		serveFile(w, r, dir(s.config.Snapshot()), name)
	}
}

// rootFile serves a single file from the project root.
func (s *Server) rootFile(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := s.config.Snapshot().Resolve(name)
		if !isFile(p) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		http.ServeFile(w, r, p)
	}
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	cfg := s.config.Snapshot()
	if cfg.Paths.Favicon != "" {
		if p := cfg.Resolve(cfg.Paths.Favicon); isFile(p) {
			http.ServeFile(w, r, p)
			return
		}
	}
	serveFile(w, r, cfg.Resolve(cfg.Paths.Img), "favicon.ico")
}

func (s *Server) handleWWW(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")
	if name == "" || strings.HasSuffix(name, "/") {
		name += "index.html"
	}
	cfg := s.config.Snapshot()
	serveFile(w, r, cfg.Resolve(cfg.Paths.WWW), name)
}

// serveFile serves root/name, refusing directories and anything that
// escapes root.
func serveFile(w http.ResponseWriter, r *http.Request, root, name string) {
	clean := path.Clean("/" + name)
	if clean == "/" {
		http.NotFound(w, r)
		return
	}
	full := filepath.Join(root, filepath.FromSlash(clean))
	if !isFile(full) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, full)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
