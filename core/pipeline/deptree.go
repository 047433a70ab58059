package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mlehmk/fabula/model"
)

// DepNode is one token within a dependency tree, with its direct dependents
// in token order.
type DepNode struct {
	Token    model.Token
	Children []*DepNode
}

// DependencyTree is the rebuilt dependency structure of a single sentence.
type DependencyTree struct {
	Root  *DepNode
	nodes []*DepNode
}

// Node returns the tree node for the token at the given sentence index,
// or nil if the index is out of range.
func (t *DependencyTree) Node(index int) *DepNode {
	if index < 0 || index >= len(t.nodes) {
		return nil
	}
	return t.nodes[index]
}

// BuildDependencyTree rebuilds a dependency tree from the head indices of
// annotated tokens. A token is the root when it is its own head; head
// indices outside the sentence are treated as roots as well. The first root
// in token order becomes the tree root.
func BuildDependencyTree(tokens []model.Token) (*DependencyTree, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("cannot build dependency tree from empty sentence")
	}

	nodes := make([]*DepNode, len(tokens))
	for i, token := range tokens {
		nodes[i] = &DepNode{Token: token}
	}

	var root *DepNode
	for i, token := range tokens {
		if token.Head == i || token.Head < 0 || token.Head >= len(tokens) {
			if root == nil {
				root = nodes[i]
			}
			continue
		}
		nodes[token.Head].Children = append(nodes[token.Head].Children, nodes[i])
	}
	if root == nil {
		return nil, fmt.Errorf("no root token found")
	}

	return &DependencyTree{Root: root, nodes: nodes}, nil
}

// Subtree returns all tokens of the subtree rooted at node, in token order.
// Traversal is guarded against malformed head cycles.
func Subtree(node *DepNode) []model.Token {
	visited := make(map[int]bool)
	var tokens []model.Token

	var walk func(n *DepNode)
	walk = func(n *DepNode) {
		if n == nil || visited[n.Token.Index] {
			return
		}
		visited[n.Token.Index] = true
		tokens = append(tokens, n.Token)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Index < tokens[j].Index
	})
	return tokens
}

// SubtreeText returns the surface text of a subtree: all its tokens in
// token order joined by single spaces.
func SubtreeText(node *DepNode) string {
	tokens := Subtree(node)
	parts := make([]string, len(tokens))
	for i, token := range tokens {
		parts[i] = token.Text
	}
	return strings.Join(parts, " ")
}

// DefaultDependencyParser returns a parser that rebuilds the tree from the
// token head indices carried on the annotated sentence.
func DefaultDependencyParser() DependencyParseFunc {
	return func(sentence *model.Sentence) (*DependencyTree, error) {
		return BuildDependencyTree(sentence.Tokens)
	}
}
