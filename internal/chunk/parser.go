package chunk

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ctxhq/ctx/internal/errorkit"
)

// node is a lightweight AST node, detached from smacker's tree-sitter types
// so the rest of the package doesn't need to hold parser resources open.
type node struct {
	Type      string
	StartByte uint32
	EndByte   uint32
	StartRow  uint32
	EndRow    uint32
	Children  []*node
}

func (n *node) content(source []byte) string {
	if n == nil || n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

func (n *node) walk(fn func(*node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// tree is a parsed file: its root node plus the source it was parsed from.
type tree struct {
	Root     *node
	Source   []byte
	Language string
}

// parser wraps smacker/go-tree-sitter, parsing one language at a time.
// Grounded on the teacher's internal/chunk/parser.go.
type parser struct {
	ts       *sitter.Parser
	registry *languageRegistry
}

func newParser(registry *languageRegistry) *parser {
	return &parser{ts: sitter.NewParser(), registry: registry}
}

func (p *parser) Close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

func (p *parser) Parse(ctx context.Context, source []byte, language string) (*tree, error) {
	tsLang, ok := p.registry.treeSitterLanguage(language)
	if !ok {
		return nil, errorkit.Validation("unsupported chunker language "+language, nil)
	}
	p.ts.SetLanguage(tsLang)

	tsTree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil || tsTree == nil {
		return nil, errorkit.New(errorkit.KindInternal, "tree-sitter parse failed", err)
	}

	return &tree{Root: convertNode(tsTree.RootNode()), Source: source, Language: language}, nil
}

func convertNode(n *sitter.Node) *node {
	if n == nil {
		return nil
	}
	out := &node{
		Type:      n.Type(),
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartRow:  n.StartPoint().Row,
		EndRow:    n.EndPoint().Row,
		Children:  make([]*node, 0, n.ChildCount()),
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if child := n.Child(i); child != nil {
			out.Children = append(out.Children, convertNode(child))
		}
	}
	return out
}
