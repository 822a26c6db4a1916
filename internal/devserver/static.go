package devserver

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	ReloadScriptPath = "/__gamekit/livereload.js"
	WebsocketPath    = "/__gamekit/ws"
)

// reloadSnippet is injected into every served HTML page.
const reloadSnippet = `<script src="` + ReloadScriptPath + `"></script>`

const reloadScript = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var delay = 500;
  function connect() {
    var ws = new WebSocket(scheme + location.host + "` + WebsocketPath + `");
    ws.onopen = function () { delay = 500; };
    ws.onmessage = function (event) {
      var msg = JSON.parse(event.data);
      if (msg.type === "reload") {
        location.reload();
      }
    };
    ws.onclose = function () {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 10000);
    };
  }
  connect();
})();
`

// InjectReload inserts the live reload snippet before the last </body>, or
// appends it when the page has none.
func InjectReload(page []byte) []byte {
	idx := lastIndexFold(page, "</body>")
	if idx < 0 {
		return append(append([]byte{}, page...), reloadSnippet...)
	}

	out := make([]byte, 0, len(page)+len(reloadSnippet))
	out = append(out, page[:idx]...)
	out = append(out, reloadSnippet...)
	out = append(out, page[idx:]...)
	return out
}

// lastIndexFold reports the last position of the ASCII tag in page,
// ignoring ASCII case. Other bytes are compared as is, so offsets always
// index into page.
func lastIndexFold(page []byte, tag string) int {
	for i := len(page) - len(tag); i >= 0; i-- {
		if bytes.EqualFold(page[i:i+len(tag)], []byte(tag)) {
			return i
		}
	}
	return -1
}

func serveReloadScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(reloadScript))
}

// staticHandler serves root with caching disabled. HTML pages get the
// reload snippet.
type staticHandler struct {
	root  string
	files http.Handler
}

func newStaticHandler(root string) *staticHandler {
	return &staticHandler{root: root, files: http.FileServer(http.Dir(root))}
}

func (s *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if page, ok := s.htmlFile(r.URL.Path); ok {
		s.serveHTML(w, r, page)
		return
	}
	s.files.ServeHTTP(w, r)
}

// htmlFile maps a request path to an HTML file below root, following the
// index.html convention for directories.
func (s *staticHandler) htmlFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") {
		clean = path.Join(clean, "index.html")
	}
	ext := strings.ToLower(path.Ext(clean))
	if ext != ".html" && ext != ".htm" {
		return "", false
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), true
}

func (s *staticHandler) serveHTML(w http.ResponseWriter, r *http.Request, file string) {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		// Let the file server produce its usual 404 or directory listing.
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			s.files.ServeHTTP(w, r)
			return
		}
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return
	}

	page, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "failed to read page", http.StatusInternalServerError)
		return
	}
	body := InjectReload(page)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
