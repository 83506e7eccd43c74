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

// symbolKind mirrors spec.md §4.3's "functions, methods, classes, structs,
// type declarations" taxonomy.
type symbolKind string

const (
	symbolFunction  symbolKind = "function"
	symbolMethod    symbolKind = "method"
	symbolClass     symbolKind = "class"
	symbolInterface symbolKind = "interface"
	symbolType      symbolKind = "type"
	symbolConstant  symbolKind = "constant"
	symbolVariable  symbolKind = "variable"
)

// languageConfig names the tree-sitter node types that define top-level
// symbols for one language, grounded on the teacher's LanguageConfig.
type languageConfig struct {
	name           string
	extensions     []string
	functionTypes  []string
	methodTypes    []string
	classTypes     []string
	interfaceTypes []string
	typeDefTypes   []string
	constantTypes  []string
	variableTypes  []string
}

// symbolTypes flattens the config into a single node-type -> symbolKind map.
func (c *languageConfig) symbolTypes() map[string]symbolKind {
	m := map[string]symbolKind{}
	for _, t := range c.functionTypes {
		m[t] = symbolFunction
	}
	for _, t := range c.methodTypes {
		m[t] = symbolMethod
	}
	for _, t := range c.classTypes {
		m[t] = symbolClass
	}
	for _, t := range c.interfaceTypes {
		m[t] = symbolInterface
	}
	for _, t := range c.typeDefTypes {
		m[t] = symbolType
	}
	for _, t := range c.constantTypes {
		m[t] = symbolConstant
	}
	for _, t := range c.variableTypes {
		m[t] = symbolVariable
	}
	return m
}

// languageRegistry maps languages to tree-sitter grammars and symbol node
// types. Grounded on the teacher's internal/chunk/languages.go.
type languageRegistry struct {
	mu          sync.RWMutex
	configs     map[string]*languageConfig
	extToLang   map[string]string
	tsLanguages map[string]*sitter.Language
}

func newLanguageRegistry() *languageRegistry {
	r := &languageRegistry{
		configs:     map[string]*languageConfig{},
		extToLang:   map[string]string{},
		tsLanguages: map[string]*sitter.Language{},
	}
	r.register(&languageConfig{
		name: "go", extensions: []string{".go"},
		functionTypes: []string{"function_declaration"},
		methodTypes:   []string{"method_declaration"},
		typeDefTypes:  []string{"type_declaration"},
		constantTypes: []string{"const_declaration"},
		variableTypes: []string{"var_declaration"},
	}, golang.GetLanguage())

	ts := &languageConfig{
		name: "typescript", extensions: []string{".ts"},
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_definition"},
		classTypes:     []string{"class_declaration"},
		interfaceTypes: []string{"interface_declaration"},
		typeDefTypes:   []string{"type_alias_declaration"},
		constantTypes:  []string{"lexical_declaration"},
		variableTypes:  []string{"variable_declaration"},
	}
	r.register(ts, typescript.GetLanguage())
	tsxCfg := *ts
	tsxCfg.name, tsxCfg.extensions = "tsx", []string{".tsx"}
	r.register(&tsxCfg, tsx.GetLanguage())

	js := &languageConfig{
		name: "javascript", extensions: []string{".js", ".mjs"},
		functionTypes: []string{"function_declaration", "function"},
		methodTypes:   []string{"method_definition"},
		classTypes:    []string{"class_declaration"},
		constantTypes: []string{"lexical_declaration"},
		variableTypes: []string{"variable_declaration"},
	}
	r.register(js, javascript.GetLanguage())
	jsx := *js
	jsx.name, jsx.extensions = "jsx", []string{".jsx"}
	r.register(&jsx, javascript.GetLanguage())

	r.register(&languageConfig{
		name: "python", extensions: []string{".py"},
		functionTypes: []string{"function_definition"},
		classTypes:    []string{"class_definition"},
		variableTypes: []string{"assignment"},
	}, python.GetLanguage())

	return r
}

func (r *languageRegistry) register(cfg *languageConfig, lang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.name] = cfg
	r.tsLanguages[cfg.name] = lang
	for _, ext := range cfg.extensions {
		r.extToLang[ext] = cfg.name
	}
}

func (r *languageRegistry) byName(name string) (*languageConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[name]
	return c, ok
}

func (r *languageRegistry) treeSitterLanguage(name string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.tsLanguages[name]
	return l, ok
}

func (r *languageRegistry) supportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

var defaultRegistry = newLanguageRegistry()

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
