package browser

// landmarkRoles is the closed set of ARIA roles treated as structural
// landmarks.
var landmarkRoles = map[string]bool{
	"banner":        true,
	"navigation":    true,
	"main":          true,
	"complementary": true,
	"contentinfo":   true,
	"form":          true,
	"region":        true,
	"search":        true,
}

// Signature is the DOM-Path Signature: a stable ancestor fingerprint used
// by the Element ID Generator in place of a fragile CSS path.
type Signature struct {
	NearestLandmarkRole      string
	NearestLandmarkLabel     string
	NearestLabelledContainer string
	SiblingIndex             int
}

// computeSignature walks ancestors of n: the first ancestor with a
// non-empty accessible name becomes NearestLabelledContainer; the first
// landmark-role ancestor becomes NearestLandmark{Role,Label} and ends the
// walk. SiblingIndex is n's index among its parent's children sharing its
// role (0 if the parent can't be found or no same-role sibling precedes it).
func computeSignature(forest *axForest, n *axNode) Signature {
	var sig Signature

	current := n
	haveLabelledContainer := false
	for {
		parentID, ok := forest.parent[current.id]
		if !ok {
			break
		}
		parent := forest.node(parentID)
		if parent == nil {
			break
		}

		if !haveLabelledContainer && parent.name != "" {
			sig.NearestLabelledContainer = parent.name
			haveLabelledContainer = true
		}

		if landmarkRoles[parent.role] {
			sig.NearestLandmarkRole = parent.role
			sig.NearestLandmarkLabel = parent.name
			break
		}

		current = parent
	}

	sig.SiblingIndex = siblingIndexByRole(forest, n)
	return sig
}

// siblingIndexByRole returns n's index among its parent's children that
// share n's role, or 0 if the parent is unknown or n isn't found.
func siblingIndexByRole(forest *axForest, n *axNode) int {
	parentID, ok := forest.parent[n.id]
	if !ok {
		return 0
	}
	parent := forest.node(parentID)
	if parent == nil {
		return 0
	}

	idx := 0
	for _, childID := range parent.childIDs {
		child := forest.node(childID)
		if child == nil || child.role != n.role {
			continue
		}
		if child.id == n.id {
			return idx
		}
		idx++
	}
	return 0
}
