package browser

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
)

// DevServer binds a static file server and a recursive file watcher to a
// single tab. At most one reload is ever in flight; changes arriving
// while a reload is pending are folded into the next one.
type DevServer struct {
	tab  *Tab
	root string

	httpSrv  *http.Server
	listener net.Listener
	watcher  *fsnotify.Watcher

	mu        sync.Mutex
	timer     *time.Timer
	pending   map[string]struct{}
	reloading bool

	stopWatch chan struct{}
}

// NewDevServer starts serving root over HTTP and watching it for changes.
// root must already have been validated as falling under the engine's
// allowedWorkspaceRoot by the caller. addr may be "127.0.0.1:0" to bind
// an ephemeral port; call Addr() for the bound address afterward.
func NewDevServer(tab *Tab, root, addr string) (*DevServer, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve dev root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("dev root %s is not a directory", abs)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create dev watcher: %w", err)
	}
	if err := watchTree(watcher, abs); err != nil {
		watcher.Close()
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("bind dev server: %w", err)
	}

	router := chi.NewRouter()
	router.Handle("/*", http.FileServer(http.Dir(abs)))

	d := &DevServer{
		tab:       tab,
		root:      abs,
		httpSrv:   &http.Server{Handler: router},
		listener:  ln,
		watcher:   watcher,
		pending:   make(map[string]struct{}),
		stopWatch: make(chan struct{}),
	}

	go d.httpSrv.Serve(ln) //nolint:errcheck // closed deliberately on Stop
	go d.watchLoop()

	return d, nil
}

// watchTree adds dir and every subdirectory beneath it to watcher.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// Addr returns the dev server's bound network address.
func (d *DevServer) Addr() string {
	return d.listener.Addr().String()
}

func (d *DevServer) watchLoop() {
	for {
		select {
		case <-d.stopWatch:
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && ev.Op&fsnotify.Create != 0 {
				d.watcher.Add(ev.Name) //nolint:errcheck // best-effort, matches newly created subdirectories
			}
			d.scheduleReload(ev.Name)
		case _, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// scheduleReload records a changed path and (re)starts the debounce
// timer; rapid-fire saves collapse into one reload.
func (d *DevServer) scheduleReload(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		rel = path
	}
	d.pending[rel] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(DevModeDebounce, d.fireReload)
}

func (d *DevServer) fireReload() {
	d.mu.Lock()
	if d.reloading || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	files := make([]string, 0, len(d.pending))
	for f := range d.pending {
		files = append(files, f)
	}
	d.pending = make(map[string]struct{})
	d.reloading = true
	d.mu.Unlock()

	ev := &ReloadEvent{
		Trigger:      "file_change",
		FilesChanged: files,
		Timestamp:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(d.tab.ctx, DefaultLoadTimeout)
	defer cancel()
	_ = chromedp.Run(ctx, chromedp.Reload())

	d.tab.setReloadEvent(ev)

	d.mu.Lock()
	d.reloading = false
	d.mu.Unlock()
}

// Stop tears down the HTTP server and file watcher. Any reload already
// in flight is allowed to finish.
func (d *DevServer) Stop() error {
	close(d.stopWatch)
	_ = d.watcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return d.httpSrv.Shutdown(ctx)
}
