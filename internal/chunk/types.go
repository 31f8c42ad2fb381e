package chunk

// Tree represents a parsed AST.
type Tree struct {
	Root     *Node
	Source   []byte
	Language string
}

// Node represents a node in the AST.
type Node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
	Children   []*Node
	HasError   bool
}

// Point represents a position in the source code.
type Point struct {
	Row    uint32 // 0-indexed line number
	Column uint32
}

// LanguageConfig identifies a supported grammar and the extensions routed to it. Symbol
// extraction itself is driven by the package-level nodeKindMap, not per-language tables: the
// mapping from grammar node type to (kind, isContainer) is shared across all registered
// grammars, since tree-sitter node-type names rarely collide across languages.
type LanguageConfig struct {
	Name       string
	Extensions []string
}

// ParsedSymbol is a symbol extracted from a source file's concrete syntax tree, with nested
// symbols attached for container kinds (classes, impl blocks, ...).
type ParsedSymbol struct {
	Name       string
	Kind       string // function, method, class, variable, constant, type, file
	LineStart  int    // 1-indexed, inclusive
	LineEnd    int    // 1-indexed, inclusive
	SourceText string
	Children   []*ParsedSymbol
}

// ParsedReference is a single identifier-like leaf encountered while walking a source file,
// keyed by (name, line) so a name referenced twice on the same line is recorded once.
type ParsedReference struct {
	Name string
	Line int
}

// ParsedDocChunk is one retrieval-sized unit produced by the doc parser.
type ParsedDocChunk struct {
	SectionTitle string // empty for the preamble before any heading
	Content      string
	LineStart    int
	LineEnd      int
}
