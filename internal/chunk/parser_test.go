package chunk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Parser Tests
// ============================================================================

func TestParser_ParseGoFile_ReturnsAST(t *testing.T) {
	source := []byte(`package main

func hello() {
	fmt.Println("Hello")
}

func goodbye() {
	fmt.Println("Bye")
}
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")

	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.NotNil(t, tree.Root)
	assert.Equal(t, "go", tree.Language)

	funcNodes := findNodes(tree.Root, "function_declaration")
	assert.Len(t, funcNodes, 2, "should find 2 function declarations")
}

func TestParser_ParseTypeScript_ReturnsAST(t *testing.T) {
	source := []byte(`interface User {
	name: string;
	age: number;
}

function greet(user: User): string {
	return "Hello, " + user.name;
}

const add = (a: number, b: number): number => a + b;
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "typescript")

	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "typescript", tree.Language)

	interfaceNodes := findNodes(tree.Root, "interface_declaration")
	funcNodes := findNodes(tree.Root, "function_declaration")
	arrowNodes := findNodes(tree.Root, "arrow_function")

	assert.Len(t, interfaceNodes, 1)
	assert.Len(t, funcNodes, 1)
	assert.Len(t, arrowNodes, 1)
}

func TestParser_HandleSyntaxError_ReturnsPartialAST(t *testing.T) {
	source := []byte(`package main

func broken( {
	// missing closing paren
}
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")

	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.True(t, tree.Root.HasError, "tree should indicate parse errors")
}

func TestParser_Lifecycle_CreateParseClose(t *testing.T) {
	parser := NewParser()

	source := []byte(`package main`)
	tree, err := parser.Parse(context.Background(), source, "go")

	require.NoError(t, err)
	require.NotNil(t, tree)

	parser.Close()
}

func TestParser_MultipleParses(t *testing.T) {
	parser := NewParser()
	defer parser.Close()

	sources := []struct {
		code     []byte
		language string
	}{
		{[]byte(`package main`), "go"},
		{[]byte(`def foo(): pass`), "python"},
		{[]byte(`function bar() {}`), "javascript"},
	}

	for _, src := range sources {
		tree, err := parser.Parse(context.Background(), src.code, src.language)
		require.NoError(t, err)
		require.NotNil(t, tree)
		assert.Equal(t, src.language, tree.Language)
	}
}

func TestParser_ParseJavaScript_ReturnsAST(t *testing.T) {
	source := []byte(`function greet(name) {
	return "Hello, " + name;
}

class Person {
	constructor(name) {
		this.name = name;
	}

	sayHello() {
		return greet(this.name);
	}
}

const arrow = (x) => x * 2;
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "javascript")

	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.Equal(t, "javascript", tree.Language)

	funcNodes := findNodes(tree.Root, "function_declaration")
	classNodes := findNodes(tree.Root, "class_declaration")
	arrowNodes := findNodes(tree.Root, "arrow_function")

	assert.Len(t, funcNodes, 1)
	assert.Len(t, classNodes, 1)
	assert.Len(t, arrowNodes, 1)
}

func TestParser_Performance_Parse1000LOC(t *testing.T) {
	var code string
	for i := 0; i < 100; i++ {
		code += `func function` + string(rune('A'+i%26)) + `() {
	// Some code here
	x := 1
	y := 2
	z := x + y
	fmt.Println(z)
}

`
	}
	source := []byte("package main\n\n" + code)

	parser := NewParser()
	defer parser.Close()

	start := time.Now()
	tree, err := parser.Parse(context.Background(), source, "go")
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, tree)
	assert.LessOrEqual(t, elapsed.Milliseconds(), int64(50), "parsing 1000+ LOC should take <= 50ms")
}

// ============================================================================
// Symbol Extraction Tests
// ============================================================================

func TestSymbolExtractor_ExtractGoSymbols(t *testing.T) {
	source := []byte(`package main

// Hello prints a greeting
func Hello() {
	fmt.Println("Hello")
}

// Add adds two numbers
func Add(a, b int) int {
	return a + b
}

type Calculator struct {
	value int
}

// Multiply is a method on Calculator
func (c *Calculator) Multiply(x int) int {
	return c.value * x
}
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	symbols, _ := extractor.Extract(tree, source)

	flat := flattenSymbols(symbols)
	names := symbolNames(flat)
	assert.Contains(t, names, "Hello")
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Calculator")
	assert.Contains(t, names, "Multiply")

	helloSymbol := findSymbolByName(flat, "Hello")
	require.NotNil(t, helloSymbol)
	assert.Equal(t, "function", helloSymbol.Kind)

	calcSymbol := findSymbolByName(flat, "Calculator")
	require.NotNil(t, calcSymbol)
	assert.Equal(t, "class", calcSymbol.Kind)

	multiplySymbol := findSymbolByName(flat, "Multiply")
	require.NotNil(t, multiplySymbol)
	assert.Equal(t, "method", multiplySymbol.Kind)
}

func TestSymbolExtractor_ExtractPythonClasses(t *testing.T) {
	source := []byte(`class Dog:
    """A dog class"""
    def bark(self):
        print("Woof!")

class Cat:
    """A cat class"""
    def meow(self):
        print("Meow!")

def main():
    dog = Dog()
    dog.bark()
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "python")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	symbols, _ := extractor.Extract(tree, source)

	flat := flattenSymbols(symbols)
	classSymbols := filterSymbolsByKind(flat, "class")
	names := symbolNames(classSymbols)
	assert.Contains(t, names, "Dog")
	assert.Contains(t, names, "Cat")
	assert.Len(t, classSymbols, 2)

	// Methods nested in a class are promoted to kind "method".
	barkSymbol := findSymbolByName(flat, "bark")
	require.NotNil(t, barkSymbol)
	assert.Equal(t, "method", barkSymbol.Kind)
}

func TestSymbolExtractor_ExtractTypeScriptSymbols(t *testing.T) {
	source := []byte(`interface User {
	name: string;
}

class UserService {
	private users: User[] = [];

	addUser(user: User): void {
		this.users.push(user);
	}
}

function createUser(name: string): User {
	return { name };
}

const getUser = (id: number): User | undefined => {
	return undefined;
};
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "typescript")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	symbols, _ := extractor.Extract(tree, source)

	names := symbolNames(flattenSymbols(symbols))
	assert.Contains(t, names, "User")
	assert.Contains(t, names, "UserService")
	assert.Contains(t, names, "createUser")
}

func TestSymbolExtractor_ExtractJavaScriptSymbols(t *testing.T) {
	source := []byte(`function processData(data) {
	return data.map(x => x * 2);
}

class DataProcessor {
	process(items) {
		return processData(items);
	}
}
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "javascript")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	symbols, _ := extractor.Extract(tree, source)

	flat := flattenSymbols(symbols)
	names := symbolNames(flat)
	assert.Contains(t, names, "processData")
	assert.Contains(t, names, "DataProcessor")

	processSymbol := findSymbolByName(flat, "process")
	require.NotNil(t, processSymbol)
	assert.Equal(t, "method", processSymbol.Kind)
}

func TestSymbolExtractor_ExtractPythonFunctions(t *testing.T) {
	source := []byte(`def greet(name: str) -> str:
    """Greet someone by name."""
    return f"Hello, {name}!"

async def fetch_data(url: str):
    """Async function to fetch data."""
    pass

class Greeter:
    def __init__(self, prefix: str):
        self.prefix = prefix

    def greet(self, name: str) -> str:
        return f"{self.prefix} {name}"
`)

	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "python")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	symbols, _ := extractor.Extract(tree, source)

	names := symbolNames(flattenSymbols(symbols))
	assert.Contains(t, names, "greet")
	assert.Contains(t, names, "fetch_data")
	assert.Contains(t, names, "Greeter")
}

func TestSymbolExtractor_ExtractReferences(t *testing.T) {
	source := []byte(`package main

func main() {
	x := compute()
	compute()
	println(x)
}
`)
	parser := NewParser()
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), source, "go")
	require.NoError(t, err)

	extractor := NewSymbolExtractor()
	_, refs := extractor.Extract(tree, source)

	var computeLines int
	for _, r := range refs {
		if r.Name == "compute" {
			computeLines++
		}
	}
	// Referenced on two distinct lines; de-duplicated per (name, line).
	assert.Equal(t, 2, computeLines)
}

func TestSymbolExtractor_Extract_EmptyInputs(t *testing.T) {
	extractor := NewSymbolExtractor()

	t.Run("nil tree", func(t *testing.T) {
		symbols, refs := extractor.Extract(nil, []byte("code"))
		assert.Empty(t, symbols)
		assert.Empty(t, refs)
	})

	t.Run("tree with nil root", func(t *testing.T) {
		tree := &Tree{Root: nil, Language: "go"}
		symbols, refs := extractor.Extract(tree, []byte("code"))
		assert.Empty(t, symbols)
		assert.Empty(t, refs)
	})
}

// ============================================================================
// Language Registry Tests
// ============================================================================

func TestLanguageRegistry_GetByExtension(t *testing.T) {
	tests := []struct {
		name      string
		extension string
		wantLang  string
		wantOK    bool
	}{
		{"Go file", ".go", "go", true},
		{"TypeScript file", ".ts", "typescript", true},
		{"TSX file", ".tsx", "tsx", true},
		{"JavaScript file", ".js", "javascript", true},
		{"JSX file", ".jsx", "jsx", true},
		{"MJS file", ".mjs", "javascript", true},
		{"Python file", ".py", "python", true},
	}

	registry := NewLanguageRegistry()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, ok := registry.GetByExtension(tt.extension)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantLang, config.Name)
			}
		})
	}
}

func TestLanguageRegistry_UnsupportedLanguage(t *testing.T) {
	registry := NewLanguageRegistry()
	config, ok := registry.GetByExtension(".ex")

	assert.False(t, ok)
	assert.Nil(t, config)
}

// ============================================================================
// Helper Functions
// ============================================================================

func findNodes(node *Node, nodeType string) []*Node {
	var result []*Node
	if node == nil {
		return result
	}
	if node.Type == nodeType {
		result = append(result, node)
	}
	for _, child := range node.Children {
		result = append(result, findNodes(child, nodeType)...)
	}
	return result
}

func flattenSymbols(symbols []*ParsedSymbol) []*ParsedSymbol {
	var flat []*ParsedSymbol
	for _, s := range symbols {
		flat = append(flat, s)
		flat = append(flat, flattenSymbols(s.Children)...)
	}
	return flat
}

func symbolNames(symbols []*ParsedSymbol) []string {
	names := make([]string, len(symbols))
	for i, s := range symbols {
		names[i] = s.Name
	}
	return names
}

func findSymbolByName(symbols []*ParsedSymbol, name string) *ParsedSymbol {
	for _, s := range symbols {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func filterSymbolsByKind(symbols []*ParsedSymbol, kind string) []*ParsedSymbol {
	var result []*ParsedSymbol
	for _, s := range symbols {
		if s.Kind == kind {
			result = append(result, s)
		}
	}
	return result
}
