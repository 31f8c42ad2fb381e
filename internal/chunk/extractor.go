package chunk

import "fmt"

// SymbolExtractor walks a parsed tree and produces the normalized symbol tree plus the flat
// reference list a single file contributes to the index. It is grounded on the node-kind-table
// walk in the original Python indexer rather than on a hand-coded per-language switch: the
// table in languages.go is the only place language-specific knowledge lives.
type SymbolExtractor struct {
	registry *LanguageRegistry
}

// NewSymbolExtractor creates a new symbol extractor using the default registry.
func NewSymbolExtractor() *SymbolExtractor {
	return &SymbolExtractor{registry: DefaultRegistry()}
}

// NewSymbolExtractorWithRegistry creates a new symbol extractor with a custom registry.
func NewSymbolExtractorWithRegistry(registry *LanguageRegistry) *SymbolExtractor {
	return &SymbolExtractor{registry: registry}
}

// Extract walks tree and returns the top-level symbols (with nested children attached to
// container symbols) and the deduplicated flat reference list.
func (e *SymbolExtractor) Extract(tree *Tree, source []byte) ([]*ParsedSymbol, []*ParsedReference) {
	if tree == nil || tree.Root == nil {
		return nil, nil
	}

	symbols := e.walk(tree.Root, source, "")
	refs := e.extractReferences(tree.Root, source)
	return symbols, refs
}

// walk implements the recursive container-aware extraction: a mapped node becomes a symbol (with
// function promoted to method under a class-like parent); container kinds recurse into their own
// children and collect the results as nested symbols, non-containers stop there; unmapped nodes
// are transparent and recursed into directly.
func (e *SymbolExtractor) walk(n *Node, source []byte, parentKind string) []*ParsedSymbol {
	mapping, ok := nodeKindMap[n.Type]
	if !ok {
		var symbols []*ParsedSymbol
		for _, child := range n.Children {
			symbols = append(symbols, e.walk(child, source, parentKind)...)
		}
		return symbols
	}

	kind := mapping.kind
	if kind == "function" && parentKind == "class" {
		kind = "method"
	}

	sym := &ParsedSymbol{
		Name:       e.symbolName(n, source),
		Kind:       kind,
		LineStart:  int(n.StartPoint.Row) + 1,
		LineEnd:    int(n.EndPoint.Row) + 1,
		SourceText: n.GetContent(source),
	}

	if mapping.isContainer {
		for _, child := range n.Children {
			sym.Children = append(sym.Children, e.walk(child, source, kind)...)
		}
	}

	return []*ParsedSymbol{sym}
}

// symbolName resolves a symbol's name: first identifier-like direct child, else the first
// identifier or name node found in a depth-first walk, else a synthetic "<anonymous@LINE>" name.
func (e *SymbolExtractor) symbolName(n *Node, source []byte) string {
	for _, child := range n.Children {
		if identifierLikeTypes[child.Type] {
			return child.GetContent(source)
		}
	}
	if name := firstIdentifier(n, source); name != "" {
		return name
	}
	return fmt.Sprintf("<anonymous@%d>", n.StartPoint.Row+1)
}

func firstIdentifier(n *Node, source []byte) string {
	if n.Type == "identifier" || n.Type == "name" {
		return n.GetContent(source)
	}
	for _, child := range n.Children {
		if name := firstIdentifier(child, source); name != "" {
			return name
		}
	}
	return ""
}

// extractReferences collects every identifier, name, type_identifier, property_identifier and
// constant leaf as a (name, line) pair, de-duplicated.
func (e *SymbolExtractor) extractReferences(root *Node, source []byte) []*ParsedReference {
	type key struct {
		name string
		line int
	}
	seen := make(map[key]bool)
	var refs []*ParsedReference

	var walk func(n *Node)
	walk = func(n *Node) {
		switch n.Type {
		case "identifier", "name", "type_identifier", "property_identifier", "constant":
			name := n.GetContent(source)
			line := int(n.StartPoint.Row) + 1
			k := key{name, line}
			if !seen[k] {
				seen[k] = true
				refs = append(refs, &ParsedReference{Name: name, Line: line})
			}
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(root)
	return refs
}
