// Package concept holds the three-level concept tree produced by the
// pipeline: a synthetic root, topics, subtopics and the details that hang off
// subtopics.
package concept

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RootName is the display name of the synthetic root.
const RootName = "Document Mindmap"

// ID identifies a node or detail for its whole lifetime, including across
// cloned and rebuilt trees.
type ID string

func newID() ID { return ID(uuid.NewString()) }

// Kind is the level of an item in the tree.
type Kind string

const (
	KindRoot     Kind = "root"
	KindTopic    Kind = "topic"
	KindSubtopic Kind = "subtopic"
	KindDetail   Kind = "detail"
)

// Importance is the three-valued weight carried by every item.
type Importance string

const (
	High   Importance = "high"
	Medium Importance = "medium"
	Low    Importance = "low"
)

// ParseImportance accepts any casing of high, medium or low.
func ParseImportance(s string) (Importance, bool) {
	switch Importance(strings.ToLower(strings.TrimSpace(s))) {
	case High:
		return High, true
	case Medium:
		return Medium, true
	case Low:
		return Low, true
	}
	return "", false
}

// Rank orders importance for tie-breaks: high 3, medium 2, low 1.
func (i Importance) Rank() int {
	switch i {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	}
	return 0
}

// Detail is a leaf value owned by one subtopic.
type Detail struct {
	ID         ID         `json:"id"`
	Text       string     `json:"text"`
	Importance Importance `json:"importance"`
}

// NewDetail creates a detail with a fresh ID.
func NewDetail(text string, importance Importance) Detail {
	return Detail{ID: newID(), Text: text, Importance: importance}
}

// Node is the root, a topic or a subtopic. Only subtopics carry details and
// only the root and topics carry children.
type Node struct {
	ID         ID         `json:"id"`
	Kind       Kind       `json:"kind"`
	Name       string     `json:"name"`
	Importance Importance `json:"importance"`
	Label      string     `json:"label,omitempty"`
	Children   []*Node    `json:"children,omitempty"`
	Details    []Detail   `json:"details,omitempty"`
}

func NewRoot() *Node {
	return &Node{ID: newID(), Kind: KindRoot, Name: RootName, Importance: High}
}

// NewTopic creates a topic. Topics are always high importance.
func NewTopic(name string) *Node {
	return &Node{ID: newID(), Kind: KindTopic, Name: name, Importance: High}
}

func NewSubtopic(name string) *Node {
	return &Node{ID: newID(), Kind: KindSubtopic, Name: name, Importance: High}
}

// childKind is the only kind a node of kind k may own.
func childKind(k Kind) Kind {
	switch k {
	case KindRoot:
		return KindTopic
	case KindTopic:
		return KindSubtopic
	}
	return ""
}

// AddChild attaches c, enforcing root→topic and topic→subtopic.
func (n *Node) AddChild(c *Node) error {
	if c == nil || childKind(n.Kind) != c.Kind {
		return fmt.Errorf("concept: %s cannot own %s", n.Kind, kindOf(c))
	}
	n.Children = append(n.Children, c)
	return nil
}

// AddDetail attaches d to a subtopic.
func (n *Node) AddDetail(d Detail) error {
	if n.Kind != KindSubtopic {
		return fmt.Errorf("concept: %s cannot own details", n.Kind)
	}
	n.Details = append(n.Details, d)
	return nil
}

func kindOf(n *Node) Kind {
	if n == nil {
		return "nil"
	}
	return n.Kind
}

// Tree is the pipeline output.
type Tree struct {
	Root *Node `json:"root"`
}

// NewTree returns a tree with an empty root.
func NewTree() *Tree {
	return &Tree{Root: NewRoot()}
}

// Topics returns the root's children.
func (t *Tree) Topics() []*Node {
	if t == nil || t.Root == nil {
		return nil
	}
	return t.Root.Children
}

// TopicCount is the number of topics under the root.
func (t *Tree) TopicCount() int {
	return len(t.Topics())
}

// Count is the number of items in the tree, root and details included.
func (t *Tree) Count() int {
	if t == nil || t.Root == nil {
		return 0
	}
	return countNode(t.Root)
}

func countNode(n *Node) int {
	total := 1 + len(n.Details)
	for _, c := range n.Children {
		total += countNode(c)
	}
	return total
}

// Walk visits every node depth first, parents before children.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	if t == nil || t.Root == nil {
		return
	}
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
}
