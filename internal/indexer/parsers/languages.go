package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Language identifiers used throughout the mapper.
const (
	LangJava       = "java"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
	LangPython     = "python"
	LangRust       = "rust"
	LangC          = "c"
	LangPHP        = "php"
	LangRuby       = "ruby"
	LangGo         = "go"
	LangMarkdown   = "markdown"
)

// NewJavaParser creates a new Java parser.
func NewJavaParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(java.Language()), LangJava)
}

// NewTypeScriptParser creates a TypeScript parser that retries with the TSX
// grammar for files using JSX syntax.
func NewTypeScriptParser() *treeSitterParser {
	tsx := newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), LangTSX)
	return newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTypescript()), LangTypeScript).withFallback(tsx)
}

// NewTSXParser creates a TSX parser that falls back to plain TypeScript.
func NewTSXParser() *treeSitterParser {
	ts := newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTypescript()), LangTypeScript)
	return newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), LangTSX).withFallback(ts)
}

// NewJavaScriptParser parses JavaScript with the TSX grammar, which accepts
// both plain JavaScript and JSX.
func NewJavaScriptParser() *treeSitterParser {
	ts := newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTypescript()), LangTypeScript)
	return newTreeSitterParser(sitter.NewLanguage(typescript.LanguageTSX()), LangJavaScript).withFallback(ts)
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(python.Language()), LangPython)
}

// NewRustParser creates a new Rust parser.
func NewRustParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(rust.Language()), LangRust)
}

// NewCParser creates a new C parser.
func NewCParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(c.Language()), LangC)
}

// NewPhpParser creates a new PHP parser.
func NewPhpParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(php.LanguagePHP()), LangPHP)
}

// NewRubyParser creates a new Ruby parser.
func NewRubyParser() *treeSitterParser {
	return newTreeSitterParser(sitter.NewLanguage(ruby.Language()), LangRuby)
}

// BaseLanguage maps grammar variants onto the language family whose tables
// they share.
func BaseLanguage(lang string) string {
	switch lang {
	case LangTSX, LangJavaScript:
		return LangTypeScript
	}
	return lang
}
