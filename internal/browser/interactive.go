package browser

import (
	"strings"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
)

// interactiveRoleType is the closed set of AX roles the Interactive
// Extractor recognizes, mapped to the InteractiveElement.Type values the
// data model allows.
var interactiveRoleType = map[string]string{
	"button":     "button",
	"link":       "link",
	"textbox":    "text_input",
	"searchbox":  "text_input",
	"textarea":   "textarea",
	"combobox":   "select",
	"listbox":    "select",
	"checkbox":   "checkbox",
	"radio":      "radio",
	"switch":     "toggle",
	"slider":     "range",
	"spinbutton": "range",
}

// optionRoles are the descendant roles an option list ("select") collects
// labels from.
var optionRoles = map[string]bool{
	"option":   true,
	"listitem": true,
}

// extractInteractive walks the forest in pre-order, emitting an
// InteractiveElement for every node whose role is in the closed
// interactive set and a FormRepresentation for every "form" node.
func extractInteractive(forest *axForest, bounds map[cdp.BackendNodeID]Bounds, idGen *idGenerator) ([]InteractiveElement, []FormRepresentation) {
	var elements []InteractiveElement
	var formNodes []*axNode
	elementIDByAXID := make(map[accessibility.NodeID]string)

	var walk func(id accessibility.NodeID)
	walk = func(id accessibility.NodeID) {
		n := forest.node(id)
		if n == nil {
			return
		}

		if n.role == "form" {
			formNodes = append(formNodes, n)
		}

		if elementType, ok := interactiveRoleType[n.role]; ok {
			el := buildInteractiveElement(forest, n, elementType, bounds, idGen)
			elementIDByAXID[n.id] = el.ID
			elements = append(elements, el)
		}

		for _, childID := range n.childIDs {
			walk(childID)
		}
	}
	for _, rootID := range forest.roots {
		walk(rootID)
	}

	forms := make([]FormRepresentation, 0, len(formNodes))
	for _, formNode := range formNodes {
		forms = append(forms, buildForm(forest, formNode, elementIDByAXID, idGen))
	}

	return elements, forms
}

func buildInteractiveElement(forest *axForest, n *axNode, elementType string, bounds map[cdp.BackendNodeID]Bounds, idGen *idGenerator) InteractiveElement {
	sig := computeSignature(forest, n)
	id := idGen.generateID(elementType, n.role, n.name, sig, n.backendID)

	b, hasBounds := bounds[n.backendID]
	var boundsPtr *Bounds
	visible := hasBounds && !b.isZero()
	if visible {
		bc := b
		boundsPtr = &bc
	}

	state := ElementState{
		Visible:  visible,
		Enabled:  !axBool(axProperty(n, "disabled")),
		Focused:  axBool(axProperty(n, "focused")),
		Checked:  axBool(axProperty(n, "checked")),
		Expanded: axBool(axProperty(n, "expanded")),
		Selected: axBool(axProperty(n, "selected")),
		Required: axBool(axProperty(n, "required")),
		Invalid:  axBool(axProperty(n, "invalid")),
	}

	el := InteractiveElement{
		ID:     id,
		Type:   elementType,
		Label:  n.name,
		Bounds: boundsPtr,
		State:  state,
	}

	switch elementType {
	case "link":
		el.Href = n.value
	case "text_input", "textarea":
		el.Value = n.value
		el.Placeholder = axValueString(axProperty(n, "placeholder"))
	case "select":
		el.Options = collectOptionLabels(forest, n)
		el.Value = n.value
	}

	return el
}

// collectOptionLabels gathers the accessible names of descendant
// option/listitem nodes for a select-typed element.
func collectOptionLabels(forest *axForest, n *axNode) []string {
	var labels []string
	var walk func(cur *axNode)
	walk = func(cur *axNode) {
		for _, childID := range cur.childIDs {
			child := forest.node(childID)
			if child == nil {
				continue
			}
			if optionRoles[child.role] && child.name != "" {
				labels = append(labels, child.name)
			}
			walk(child)
		}
	}
	walk(n)
	return labels
}

// buildForm assembles one form's field list and submit element from its
// interactive descendants.
func buildForm(forest *axForest, formNode *axNode, elementIDByAXID map[accessibility.NodeID]string, idGen *idGenerator) FormRepresentation {
	sig := computeSignature(forest, formNode)
	formID := idGen.generateID("form", formNode.role, formNode.name, sig, formNode.backendID)

	var fields []string
	var submit *string

	var walk func(n *axNode)
	walk = func(n *axNode) {
		for _, childID := range n.childIDs {
			child := forest.node(childID)
			if child == nil {
				continue
			}
			if elementID, ok := elementIDByAXID[child.id]; ok {
				fields = append(fields, elementID)
				if submit == nil && child.role == "button" && isSubmitButton(child) {
					id := elementID
					submit = &id
				}
			}
			walk(child)
		}
	}
	walk(formNode)

	return FormRepresentation{
		ID:     formID,
		Fields: fields,
		Submit: submit,
	}
}

func isSubmitButton(n *axNode) bool {
	if axValueString(axProperty(n, "type")) == "submit" {
		return true
	}
	return strings.Contains(strings.ToLower(n.name), "submit")
}

// axBool interprets an AX property value as a boolean, treating absent
// values, "false", and non-boolean-shaped values as false. "mixed"
// (tri-state checkboxes) counts as true.
func axBool(v *accessibility.Value) bool {
	if v == nil || len(v.Value) == 0 {
		return false
	}
	s := unquoteJSON(string(v.Value))
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "mixed")
}
