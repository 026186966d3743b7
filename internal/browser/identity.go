package browser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/chromedp/cdproto/cdp"
)

// typePrefix maps an InteractiveElement/Heading/Form type to the element
// identifier's opaque prefix.
var typePrefix = map[string]string{
	"button":     "btn",
	"link":       "lnk",
	"text_input": "inp",
	"textarea":   "inp",
	"select":     "sel",
	"checkbox":   "chk",
	"radio":      "rad",
	"toggle":     "tog",
	"range":      "rng",
	"form":       "frm",
	"heading":    "h",
}

func prefixFor(elementType string) string {
	if p, ok := typePrefix[elementType]; ok {
		return p
	}
	return "el"
}

// elementIdentity is the (type, label) pair used for fuzzy matching once
// an element id no longer resolves.
type elementIdentity struct {
	Type  string
	Label string
}

// idGenerator implements the Element ID Generator: a deterministic
// hash of (type, role, name, signature) to a short stable id, a per-render
// id<->backend-node-id map, and a fuzzy did-you-mean lookup for element
// ids that no longer resolve.
//
// The hash is a pure function of its inputs, so id stability across
// renders falls out automatically: the same logical element produces
// the same key, and the same key produces the same id, without needing
// to remember the prior render's assignments. Only the live
// id<->backend-node-id bindings and
// the this-render collision table are reset per render; the historical
// type/label used by findSimilar is retained across renders so a
// recently-vanished id can still be explained.
type idGenerator struct {
	mu sync.Mutex

	idToBackend map[string]cdp.BackendNodeID
	backendToID map[cdp.BackendNodeID]string
	idInfo      map[string]elementIdentity // current render only
	usedKeys    map[string]string          // id -> hash key claimed this render

	history map[string]elementIdentity // every id ever assigned, for findSimilar
}

func newIDGenerator() *idGenerator {
	return &idGenerator{
		idToBackend: make(map[string]cdp.BackendNodeID),
		backendToID: make(map[cdp.BackendNodeID]string),
		idInfo:      make(map[string]elementIdentity),
		usedKeys:    make(map[string]string),
		history:     make(map[string]elementIdentity),
	}
}

// beginRender resets the live per-render bindings ahead of a fresh walk
// of the accessibility tree. Must be called with the generator held as
// single-writer for the duration of the render.
func (g *idGenerator) beginRender() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.idToBackend = make(map[string]cdp.BackendNodeID)
	g.backendToID = make(map[cdp.BackendNodeID]string)
	g.idInfo = make(map[string]elementIdentity)
	g.usedKeys = make(map[string]string)
}

// generateID assigns the stable element id for one node. On a hash
// collision within the current render, the signature's sibling index is
// advanced and rehashed until the id is unique (the disambiguator).
func (g *idGenerator) generateID(elementType, role, name string, sig Signature, backendID cdp.BackendNodeID) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	prefix := prefixFor(elementType)
	key := signatureKey(elementType, role, name, sig)
	id := prefix + "-" + hash6(key)

	for {
		existingKey, taken := g.usedKeys[id]
		if !taken || (existingKey == key && g.idToBackend[id] == backendID) {
			break
		}
		sig.SiblingIndex++
		key = signatureKey(elementType, role, name, sig)
		id = prefix + "-" + hash6(key)
	}

	g.usedKeys[id] = key
	g.idToBackend[id] = backendID
	g.backendToID[backendID] = id
	info := elementIdentity{Type: elementType, Label: name}
	g.idInfo[id] = info
	g.history[id] = info
	return id
}

func signatureKey(elementType, role, name string, sig Signature) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%d",
		elementType, role, name,
		sig.NearestLandmarkRole, sig.NearestLandmarkLabel,
		sig.NearestLabelledContainer, sig.SiblingIndex)
}

func hash6(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:6]
}

// resolveID returns the current backend-node-id bound to an element id,
// or false if the id isn't live in the current render.
func (g *idGenerator) resolveID(id string) (cdp.BackendNodeID, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	backendID, ok := g.idToBackend[id]
	return backendID, ok
}

// idFor returns the element id currently bound to a backend-node-id.
func (g *idGenerator) idFor(backendID cdp.BackendNodeID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.backendToID[backendID]
	return id, ok
}

// findSimilar returns the closest live candidate to a vanished element
// id by Levenshtein distance over "type:label" pairs, for did-you-mean
// hints. Returns false if no candidate is close enough to be useful.
func (g *idGenerator) findSimilar(id string) (string, bool) {
	g.mu.Lock()
	target, known := g.history[id]
	candidates := make(map[string]elementIdentity, len(g.idInfo))
	for cid, info := range g.idInfo {
		candidates[cid] = info
	}
	g.mu.Unlock()

	if !known || len(candidates) == 0 {
		return "", false
	}

	targetKey := target.Type + ":" + target.Label
	type scored struct {
		id   string
		dist int
	}
	var all []scored
	for cid, info := range candidates {
		if cid == id {
			continue
		}
		all = append(all, scored{cid, levenshtein(targetKey, info.Type+":"+info.Label)})
	}
	if len(all) == 0 {
		return "", false
	}
	sort.Slice(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	top := all
	if len(top) > 3 {
		top = top[:3]
	}
	best := top[0]

	// A distance larger than half the target key's length plus two is
	// not a useful suggestion.
	if best.dist > len(targetKey)/2+2 {
		return "", false
	}
	return best.id, true
}

// levenshtein computes the classic edit distance between two strings.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
