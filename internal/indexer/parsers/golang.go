package parsers

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strings"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// goParser parses Go with go/ast and exposes the result as a BasicNode tree
// using tree-sitter style kinds.
type goParser struct{}

// NewGoParser creates a new Go parser.
func NewGoParser() *goParser {
	return &goParser{}
}

func (p *goParser) Language() string {
	return LangGo
}

// Parse parses Go source. Syntax errors are reported on the tree and the
// partial AST is still converted.
func (p *goParser) Parse(ctx context.Context, src []byte) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", src, parser.AllErrors|parser.SkipObjectResolution)

	li := symbols.NewLineIndex(src)
	var syntaxErrs []*symbols.SyntaxError
	if err != nil {
		var list scanner.ErrorList
		if !errors.As(err, &list) {
			return nil, fmt.Errorf("failed to parse go source: %w", err)
		}
		for _, e := range list {
			syntaxErrs = append(syntaxErrs, &symbols.SyntaxError{
				Span:    li.Span(e.Pos.Offset, e.Pos.Offset),
				Message: e.Msg,
			})
		}
	}
	if file == nil {
		return nil, fmt.Errorf("failed to parse go source: %w", err)
	}

	b := &goBuilder{src: src, li: li}
	fset.Iterate(func(f *token.File) bool {
		b.base = f.Base()
		return false
	})

	return &BasicTree{
		RootNode: b.file(file),
		Src:      src,
		Lang:     LangGo,
		Errors:   syntaxErrs,
	}, nil
}

type goBuilder struct {
	base int
	src  []byte
	li   *symbols.LineIndex
}

func (b *goBuilder) offset(p token.Pos) int {
	off := int(p) - b.base
	if off < 0 {
		return 0
	}
	if off > len(b.src) {
		return len(b.src)
	}
	return off
}

func (b *goBuilder) rangeNode(kind string, from, to token.Pos) *BasicNode {
	start, end := b.offset(from), b.offset(to)
	return NewBasicNode(kind, b.li.Span(start, end), string(b.src[start:end]))
}

func (b *goBuilder) node(kind string, n ast.Node) *BasicNode {
	return b.rangeNode(kind, n.Pos(), n.End())
}

func (b *goBuilder) file(f *ast.File) *BasicNode {
	root := NewBasicNode("source_file", b.li.Span(0, len(b.src)), string(b.src))

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok == token.IMPORT {
				continue
			}
			grouped := d.Lparen.IsValid()
			for _, spec := range d.Specs {
				var n *BasicNode
				switch s := spec.(type) {
				case *ast.TypeSpec:
					n = b.typeSpec(s)
				case *ast.ValueSpec:
					n = b.valueSpec(s, d.Tok)
				}
				if n == nil {
					continue
				}
				if !grouped {
					// Include the keyword in single-spec declarations.
					whole := b.node(n.NodeKind, d)
					n.NodeSpan, n.Content = whole.NodeSpan, whole.Content
				}
				root.Add("", n)
			}
		case *ast.FuncDecl:
			root.Add("", b.funcDecl(d))
		case *ast.BadDecl:
			bad := b.node("ERROR", d)
			bad.Error = true
			root.Add("", bad)
		}
	}

	return root
}

func (b *goBuilder) typeSpec(s *ast.TypeSpec) *BasicNode {
	kind := "type_spec"
	switch s.Type.(type) {
	case *ast.StructType:
		kind = "struct_spec"
	case *ast.InterfaceType:
		kind = "interface_spec"
	}

	n := b.node(kind, s)
	n.Add("name", b.node("type_identifier", s.Name))
	if s.TypeParams != nil {
		n.Add("type_parameters", b.node("type_parameter_list", s.TypeParams))
	}

	switch t := s.Type.(type) {
	case *ast.StructType:
		body := b.node("field_declaration_list", t.Fields)
		for _, f := range t.Fields.List {
			body.Add("", b.structField(f))
		}
		n.Add("body", body)
	case *ast.InterfaceType:
		body := b.node("interface_body", t.Methods)
		for _, m := range t.Methods.List {
			if len(m.Names) > 0 {
				body.Add("", b.methodElem(m))
				continue
			}
			switch m.Type.(type) {
			case *ast.Ident, *ast.SelectorExpr, *ast.IndexExpr, *ast.IndexListExpr:
				n.Add("extends", b.node("type_identifier", m.Type))
			}
		}
		n.Add("body", body)
	default:
		n.Add("type", b.node("type", s.Type))
	}

	return n
}

func (b *goBuilder) structField(f *ast.Field) *BasicNode {
	n := b.node("field_declaration", f)
	if len(f.Names) == 0 {
		name := b.node("field_identifier", f.Type)
		name.Content = embeddedName(name.Content)
		n.Add("name", name)
		marker := b.rangeNode("embedded", f.Pos(), f.Pos())
		marker.Named = false
		marker.Content = "embedded"
		n.Add("", marker)
	}
	for _, id := range f.Names {
		n.Add("name", b.node("field_identifier", id))
	}
	n.Add("type", b.node("type", f.Type))
	return n
}

func (b *goBuilder) methodElem(f *ast.Field) *BasicNode {
	n := b.node("method_elem", f)
	n.Add("name", b.node("field_identifier", f.Names[0]))
	if ft, ok := f.Type.(*ast.FuncType); ok {
		n.Add("parameters", b.node("parameter_list", ft.Params))
		if ft.Results != nil {
			n.Add("result", b.node("result", ft.Results))
		}
	}
	return n
}

func (b *goBuilder) valueSpec(s *ast.ValueSpec, tok token.Token) *BasicNode {
	kind := "var_spec"
	if tok == token.CONST {
		kind = "const_spec"
	}
	n := b.node(kind, s)
	for _, id := range s.Names {
		n.Add("name", b.node("identifier", id))
	}
	if s.Type != nil {
		n.Add("type", b.node("type", s.Type))
	}
	return n
}

func (b *goBuilder) funcDecl(d *ast.FuncDecl) *BasicNode {
	kind := "function_declaration"
	if d.Recv != nil {
		kind = "method_declaration"
	}

	n := b.node(kind, d)
	if d.Recv != nil {
		n.Add("receiver", b.node("parameter_list", d.Recv))
	}
	n.Add("name", b.node("identifier", d.Name))
	if d.Type.TypeParams != nil {
		n.Add("type_parameters", b.node("type_parameter_list", d.Type.TypeParams))
	}
	n.Add("parameters", b.node("parameter_list", d.Type.Params))
	if d.Type.Results != nil {
		n.Add("result", b.node("result", d.Type.Results))
	}
	if d.Body != nil {
		body := b.node("block", d.Body)
		b.localTypes(body, d.Body)
		n.Add("body", body)
	}
	return n
}

// localTypes attaches type declarations found inside function bodies,
// including those nested in function literals.
func (b *goBuilder) localTypes(parent *BasicNode, body ast.Node) {
	ast.Inspect(body, func(x ast.Node) bool {
		switch v := x.(type) {
		case *ast.DeclStmt:
			if gd, ok := v.Decl.(*ast.GenDecl); ok && gd.Tok == token.TYPE {
				for _, spec := range gd.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok {
						parent.Add("", b.typeSpec(ts))
					}
				}
			}
			return false
		case *ast.FuncLit:
			lit := b.node("func_literal", v)
			b.localTypes(lit, v.Body)
			parent.Add("", lit)
			return false
		}
		return true
	})
}

// embeddedName is the implicit field name of an embedded type.
func embeddedName(typeText string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeText), "*")
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
