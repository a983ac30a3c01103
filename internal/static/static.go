package static

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Handler serves files below Root for GET and HEAD. Regular files are served
// directly so /index.html answers 200 instead of redirecting to "/";
// directories fall through to http.FileServer for index.html and listings.
type Handler struct {
	Root http.FileSystem
	dirs http.Handler
}

func NewHandler(dir string) *Handler {
	root := dotFileHidingFS{http.Dir(dir)}
	return &Handler{Root: root, dirs: http.FileServer(root)}
}

// dotFileHidingFS reports dotfiles and dot directories as missing and leaves
// them out of listings. This keeps .env and in-flight temp files private.
type dotFileHidingFS struct {
	http.FileSystem
}

func (fsys dotFileHidingFS) Open(name string) (http.File, error) {
	if containsDotFile(name) {
		return nil, fs.ErrNotExist
	}
	f, err := fsys.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	return dotFileHidingFile{f}, nil
}

func containsDotFile(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

type dotFileHidingFile struct {
	http.File
}

func (f dotFileHidingFile) Readdir(n int) ([]fs.FileInfo, error) {
	files, err := f.File.Readdir(n)
	visible := files[:0]
	for _, file := range files {
		if !strings.HasPrefix(file.Name(), ".") {
			visible = append(visible, file)
		}
	}
	return visible, err
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}

	name := r.URL.Path
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	name = path.Clean(name)

	f, err := h.Root.Open(name)
	if err != nil {
		status, msg := toHTTPError(err)
		http.Error(w, msg, status)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		status, msg := toHTTPError(err)
		http.Error(w, msg, status)
		return
	}

	if info.IsDir() {
		h.dirs.ServeHTTP(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func toHTTPError(err error) (int, string) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "404 page not found"
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden, "403 Forbidden"
	default:
		return http.StatusInternalServerError, "500 Internal Server Error"
	}
}
