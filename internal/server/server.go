// Package server implements the live preview: it serves the compiled
// document over HTTP, watches the source tree by polling modification
// times, and pushes reload notifications to open pages over a websocket.
package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/specmark/specmark/core/diag"
	"github.com/specmark/specmark/internal/logging"
)

// BuildFunc compiles the watched document and returns the rendered page.
type BuildFunc func(ctx context.Context) (html string, diags *diag.List, err error)

// Server is the preview server for one document.
type Server struct {
	// Addr is the listen address, e.g. "localhost:8045".
	Addr string

	// SourceDir is the directory polled for changes. Every .html fragment
	// under it counts.
	SourceDir string

	// Build recompiles the document.
	Build BuildFunc

	// PollInterval is how often the source tree is checked. Zero means
	// one second.
	PollInterval time.Duration

	hub *Hub

	mu   sync.RWMutex
	page string
}

const reloadScript = `<script>
(function () {
  var ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type === "reload") { location.reload(); }
    else { console.error("build failed:", msg.message); }
  };
})();
</script>
`

// ListenAndServe builds once, then serves and rebuilds on change until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.hub = NewHub()
	go s.hub.Run()

	if _, err := s.rebuild(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/ws", s.hub.handleWebSocket)

	srv := &http.Server{Addr: s.Addr, Handler: mux}
	go s.watch(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("preview server listening", "addr", s.Addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	page := s.page
	s.mu.RUnlock()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// rebuild compiles and swaps in the new page with the reload script
// injected before the closing body tag. Returns the diagnostic count.
func (s *Server) rebuild(ctx context.Context) (int, error) {
	html, diags, err := s.Build(ctx)
	if err != nil {
		return 0, err
	}
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		html = html[:i] + reloadScript + html[i:]
	} else {
		html += reloadScript
	}
	s.mu.Lock()
	s.page = html
	s.mu.Unlock()
	count := 0
	if diags != nil {
		count = diags.Count()
	}
	if count > 0 {
		logging.Warn("rebuild finished with diagnostics", "count", count)
	}
	return count, nil
}

// watch polls the source tree and triggers rebuild + reload broadcast when
// any fragment's mtime moves.
func (s *Server) watch(ctx context.Context) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	last := s.stamp()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := s.stamp()
			if cur == last {
				continue
			}
			last = cur
			count, err := s.rebuild(ctx)
			if err != nil {
				logging.Error("rebuild", "error", err)
				s.hub.Broadcast(ReloadMessage{Type: "error", Message: err.Error()})
				continue
			}
			s.hub.Broadcast(ReloadMessage{Type: "reload", Diagnostics: count})
		}
	}
}

// stamp folds the mtimes of every markup file under SourceDir into a single
// comparable value.
func (s *Server) stamp() int64 {
	var sum int64
	filepath.WalkDir(s.SourceDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".html" && ext != ".json" && ext != ".yaml" {
			return nil
		}
		if info, err := d.Info(); err == nil {
			sum += info.ModTime().UnixNano()
		}
		return nil
	})
	return sum
}
