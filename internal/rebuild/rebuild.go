// Package rebuild produces pruned copies of a concept tree. Both the
// redundancy pass and grounding describe what survives as a set of IDs; the
// functions here turn that set into a new tree and never hand back an empty
// one.
package rebuild

import "github.com/chriscarrollsmith/mindmap-generator/internal/concept"

// Keep returns a copy of t holding only the items whose IDs are in keep. A
// node that is not kept takes its subtree with it, and a topic or subtopic
// left without children or details is dropped. The root is always kept.
// When keep is empty or no topic survives, t itself is returned.
func Keep(t *concept.Tree, keep map[concept.ID]bool) *concept.Tree {
	if t == nil || t.Root == nil || len(keep) == 0 {
		return t
	}
	root := &concept.Node{
		ID:         t.Root.ID,
		Kind:       t.Root.Kind,
		Name:       t.Root.Name,
		Importance: t.Root.Importance,
		Label:      t.Root.Label,
	}
	for _, topic := range t.Root.Children {
		if n := keepNode(topic, keep); n != nil {
			root.Children = append(root.Children, n)
		}
	}
	if len(root.Children) == 0 {
		return t
	}
	return &concept.Tree{Root: root}
}

func keepNode(n *concept.Node, keep map[concept.ID]bool) *concept.Node {
	if !keep[n.ID] {
		return nil
	}
	out := &concept.Node{
		ID:         n.ID,
		Kind:       n.Kind,
		Name:       n.Name,
		Importance: n.Importance,
		Label:      n.Label,
	}
	for _, c := range n.Children {
		if kc := keepNode(c, keep); kc != nil {
			out.Children = append(out.Children, kc)
		}
	}
	for _, d := range n.Details {
		if keep[d.ID] {
			out.Details = append(out.Details, d)
		}
	}
	if len(out.Children) == 0 && len(out.Details) == 0 {
		return nil
	}
	return out
}

// Verified rebuilds t from grounding results. A detail survives when it is
// verified. A subtopic survives when it is verified and still has details, a
// topic when it is verified and still has subtopics. When nothing survives,
// t itself is returned.
func Verified(t *concept.Tree, verified map[concept.ID]bool) *concept.Tree {
	if t == nil || t.Root == nil {
		return t
	}
	keep := make(map[concept.ID]bool, len(verified))
	for id, ok := range verified {
		if ok {
			keep[id] = true
		}
	}
	return Keep(t, keep)
}

// AllIDs returns the ID of every node and detail in t, root included.
func AllIDs(t *concept.Tree) map[concept.ID]bool {
	ids := make(map[concept.ID]bool)
	for _, item := range concept.Flatten(t) {
		ids[item.ID] = true
	}
	return ids
}
