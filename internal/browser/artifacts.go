package browser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Artifact is a persisted screenshot. It is the
// one file-backed exception to the engine's otherwise in-memory state.
type Artifact struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Format    string    `json:"format"`
	MimeType  string    `json:"mimeType"`
	Size      int       `json:"size"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Selector  string    `json:"selector,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ArtifactMeta is the caller-supplied half of an Artifact; Save fills in
// id/filename/path/size/timestamp.
type ArtifactMeta struct {
	Format   string
	URL      string
	Title    string
	Selector string
}

const indexFilename = "index.jsonl"

// ArtifactStore is the file-backed screenshot index. It is
// single-writer: no concurrent saves to the same id are possible since
// ids are minted at save time.
type ArtifactStore struct {
	mu    sync.Mutex
	dir   string
	byID  map[string]*Artifact
	order []string // newest-last
}

// NewArtifactStore creates a store rooted at dir and loads any existing
// index, skipping entries whose backing file has vanished.
func NewArtifactStore(dir string) (*ArtifactStore, error) {
	s := &ArtifactStore{dir: dir, byID: make(map[string]*Artifact)}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ArtifactStore) load() error {
	path := filepath.Join(s.dir, indexFilename)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open artifact index: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a Artifact
		if err := json.Unmarshal(line, &a); err != nil {
			continue // tolerate a corrupt line rather than failing startup
		}
		if !fileExists(a.Path) {
			continue // orphaned entry, drop silently
		}
		s.byID[a.ID] = &a
		s.order = append(s.order, a.ID)
	}
	return scanner.Err()
}

func (s *ArtifactStore) appendIndex(a *Artifact) error {
	path := filepath.Join(s.dir, indexFilename)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open artifact index for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// rewriteIndex fully rewrites the sidecar file from the in-memory set,
// used after a delete.
func (s *ArtifactStore) rewriteIndex() error {
	path := filepath.Join(s.dir, indexFilename)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rewrite artifact index: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, id := range s.order {
		a := s.byID[id]
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

func mimeTypeFor(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// Save writes bytes to disk under the store's directory, indexes it, and
// returns the resulting Artifact.
func (s *ArtifactStore) Save(data []byte, meta ArtifactMeta) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	format := meta.Format
	if format == "" {
		format = "png"
	}
	ts := time.Now()
	id := fmt.Sprintf("ss-%s-%s", ts.Format("20060102150405"), shortHex())
	filename := id + "." + extFor(format)
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("write screenshot: %w", err)
	}

	a := &Artifact{
		ID:        id,
		Filename:  filename,
		Path:      path,
		Format:    format,
		MimeType:  mimeTypeFor(format),
		Size:      len(data),
		URL:       meta.URL,
		Title:     meta.Title,
		Selector:  meta.Selector,
		Timestamp: ts,
	}
	if err := s.appendIndex(a); err != nil {
		return nil, err
	}

	s.byID[id] = a
	s.order = append(s.order, id)
	return a, nil
}

func extFor(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

func shortHex() string {
	return uuid.New().String()[:6]
}

// Get returns the artifact with the given id, if indexed.
func (s *ArtifactStore) Get(id string) (*Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	return a, ok
}

// List returns every indexed artifact, newest first.
func (s *ArtifactStore) List() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.byID[s.order[i]])
	}
	return out
}

// ReadFile returns the artifact's bytes from disk, garbage-collecting
// the index entry if the backing file has since been removed out from
// under the store.
func (s *ArtifactStore) ReadFile(id string) ([]byte, error) {
	s.mu.Lock()
	a, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("artifact %s not found", id)
	}

	data, err := os.ReadFile(a.Path)
	if os.IsNotExist(err) {
		s.evict(id)
		return nil, fmt.Errorf("artifact %s file missing, index entry removed", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", id, err)
	}
	return data, nil
}

func (s *ArtifactStore) evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	_ = s.rewriteIndex()
}

// Delete unlinks the artifact's file and removes its index entry.
func (s *ArtifactStore) Delete(id string) error {
	s.mu.Lock()
	a, ok := s.byID[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("artifact %s not found", id)
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact file: %w", err)
	}
	s.evict(id)
	return nil
}

// SetDir resets the store to a new screenshot directory, clearing the
// in-memory index and loading the new directory's sidecar if present.
func (s *ArtifactStore) SetDir(dir string) error {
	s.mu.Lock()
	s.dir = dir
	s.byID = make(map[string]*Artifact)
	s.order = nil
	s.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return s.load()
}

// Dir returns the store's current screenshot directory.
func (s *ArtifactStore) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}
