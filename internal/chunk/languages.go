package chunk

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// LanguageRegistry manages supported languages and their tree-sitter grammars.
type LanguageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*LanguageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

// NewLanguageRegistry creates a new registry with default language configurations.
func NewLanguageRegistry() *LanguageRegistry {
	r := &LanguageRegistry{
		configs:     make(map[string]*LanguageConfig),
		extToLang:   make(map[string]string),
		tsLanguages: make(map[string]*sitter.Language),
	}

	r.registerLanguage(&LanguageConfig{Name: "go", Extensions: []string{".go"}}, golang.GetLanguage())
	r.registerLanguage(&LanguageConfig{Name: "typescript", Extensions: []string{".ts"}}, typescript.GetLanguage())
	r.registerLanguage(&LanguageConfig{Name: "tsx", Extensions: []string{".tsx"}}, tsx.GetLanguage())
	r.registerLanguage(&LanguageConfig{Name: "javascript", Extensions: []string{".js", ".mjs"}}, javascript.GetLanguage())
	r.registerLanguage(&LanguageConfig{Name: "jsx", Extensions: []string{".jsx"}}, javascript.GetLanguage())
	r.registerLanguage(&LanguageConfig{Name: "python", Extensions: []string{".py"}}, python.GetLanguage())

	return r
}

// GetByExtension returns the language configuration for a file extension.
func (r *LanguageRegistry) GetByExtension(ext string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	langName, ok := r.extToLang[ext]
	if !ok {
		return nil, false
	}
	config, ok := r.configs[langName]
	return config, ok
}

// GetByName returns the language configuration by name.
func (r *LanguageRegistry) GetByName(name string) (*LanguageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

// GetTreeSitterLanguage returns the tree-sitter language for a language name.
func (r *LanguageRegistry) GetTreeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.tsLanguages[name]
	return lang, ok
}

// SupportedExtensions returns all supported file extensions.
func (r *LanguageRegistry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

func (r *LanguageRegistry) registerLanguage(config *LanguageConfig, tsLang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[config.Name] = config
	r.tsLanguages[config.Name] = tsLang
	for _, ext := range config.Extensions {
		r.extToLang[ext] = config.Name
	}
}

var defaultRegistry = NewLanguageRegistry()

// DefaultRegistry returns the global language registry.
func DefaultRegistry() *LanguageRegistry {
	return defaultRegistry
}

// nodeKind describes how a tree-sitter node type maps onto a normalized symbol kind.
type nodeKind struct {
	kind        string
	isContainer bool
}

// nodeKindMap is the fixed table mapping grammar node types to (kind, isContainer) pairs,
// shared across every registered grammar. Adding a language is a handful of entries here plus
// a grammar import in NewLanguageRegistry, never a code change to the extractor.
var nodeKindMap = map[string]nodeKind{
	// Python
	"function_definition": {"function", false},
	"class_definition":    {"class", true},
	// JS / TS
	"function_declaration":   {"function", false},
	"arrow_function":         {"function", false},
	"class_declaration":      {"class", true},
	"method_definition":      {"method", false},
	"lexical_declaration":    {"variable", false},
	"variable_declaration":   {"variable", false},
	"interface_declaration":  {"class", true},
	"type_alias_declaration": {"type", false},
	// Go
	"method_declaration": {"method", false},
	"type_spec":          {"class", false},
	"const_declaration":  {"constant", false},
	"var_declaration":    {"variable", false},
}

// identifierLikeTypes are node types accepted as a symbol's name, in priority order when
// scanning a node's direct children. field_identifier is an expansion beyond the generic set so
// that Go method receivers ("func (r *T) Name(...)") resolve to their field_identifier name
// rather than the receiver parameter.
var identifierLikeTypes = map[string]bool{
	"identifier":          true,
	"name":                true,
	"property_identifier": true,
	"type_identifier":     true,
	"constant":            true,
	"field_identifier":    true,
}
