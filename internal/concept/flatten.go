package concept

import "strings"

// ContentItem is a flat view of one tree item used by cross-tree redundancy
// scanning and grounding. It is rebuilt from the tree each time it is needed.
type ContentItem struct {
	ID         ID
	Text       string
	Path       []string
	Kind       Kind
	Importance Importance
}

// PathString renders the path for logs.
func (c ContentItem) PathString() string {
	return strings.Join(c.Path, " → ")
}

// Depth is the path length, used to prefer items closer to the root.
func (c ContentItem) Depth() int {
	return len(c.Path)
}

// Flatten projects the tree into content items in depth-first order. The
// root is included first; callers that only want content skip KindRoot.
func Flatten(t *Tree) []ContentItem {
	if t == nil || t.Root == nil {
		return nil
	}
	var out []ContentItem
	var walk func(n *Node, path []string)
	walk = func(n *Node, path []string) {
		p := appendPath(path, n.Name)
		out = append(out, ContentItem{
			ID:         n.ID,
			Text:       n.Name,
			Path:       p,
			Kind:       n.Kind,
			Importance: n.Importance,
		})
		for _, d := range n.Details {
			out = append(out, ContentItem{
				ID:         d.ID,
				Text:       d.Text,
				Path:       appendPath(p, d.Text),
				Kind:       KindDetail,
				Importance: d.Importance,
			})
		}
		for _, c := range n.Children {
			walk(c, p)
		}
	}
	walk(t.Root, nil)
	return out
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}
