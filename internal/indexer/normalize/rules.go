package normalize

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// LanguageRules is the normalization table for one language.
type LanguageRules struct {
	Language string

	// Kinds maps a raw declaration kind to its unified kind. Raw kinds
	// listed in Drop normalize to nothing; any other raw kind is reported
	// as an unknown construct.
	Kinds map[string]symbols.Kind
	// Named overrides Kinds for one (raw kind, name) pair, e.g. a
	// "__init__" function is a constructor. An empty kind drops the pair.
	Named map[string]map[string]symbols.Kind
	Drop  map[string]bool

	Modifiers  ModifierTable
	Visibility VisibilityFunc // Used when no token sets visibility

	// Grammar reads generic parameter lists. A zero grammar means the
	// language has none and any parameter text is kept unparsed.
	Grammar            BoundGrammar
	HeritageSeparators []string
}

// KindFor resolves the unified kind. drop is set for constructs that
// normalize to nothing; ok is false when no rule exists.
func (r *LanguageRules) KindFor(rawKind, name string) (kind symbols.Kind, drop, ok bool) {
	if byName, found := r.Named[rawKind]; found {
		if k, found := byName[name]; found {
			return k, k == "", true
		}
	}
	if r.Drop[rawKind] {
		return "", true, true
	}
	k, ok := r.Kinds[rawKind]
	return k, false, ok
}

func hasGrammar(g BoundGrammar) bool {
	return g.Open != 0
}

var commaSeparated = []string{","}

// DefaultRules returns the tables for every language shipped in-tree.
func DefaultRules() []*LanguageRules {
	return []*LanguageRules{
		{
			Language: parsers.LangJava,
			Kinds: map[string]symbols.Kind{
				"class_declaration":                   symbols.KindType,
				"anonymous_class":                     symbols.KindType,
				"interface_declaration":               symbols.KindInterface,
				"enum_declaration":                    symbols.KindEnum,
				"enum_constant":                       symbols.KindEnumConstant,
				"record_declaration":                  symbols.KindRecord,
				"record_component":                    symbols.KindRecordComponent,
				"annotation_type_declaration":         symbols.KindAnnotationDefinition,
				"annotation_type_element_declaration": symbols.KindMethod,
				"method_declaration":                  symbols.KindMethod,
				"constructor_declaration":             symbols.KindConstructor,
				"compact_constructor_declaration":     symbols.KindConstructor,
				"field_declaration":                   symbols.KindField,
				"constant_declaration":                symbols.KindField,
			},
			Modifiers:          javaModifiers,
			Grammar:            javaGrammar,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangTypeScript,
			Kinds: map[string]symbols.Kind{
				"class_declaration":          symbols.KindType,
				"abstract_class_declaration": symbols.KindType,
				"type_alias_declaration":     symbols.KindType,
				"interface_declaration":      symbols.KindInterface,
				"enum_declaration":           symbols.KindEnum,
				"enum_member":                symbols.KindEnumConstant,
				"function":                   symbols.KindMethod,
				"method":                     symbols.KindMethod,
				"field":                      symbols.KindField,
				"variable":                   symbols.KindField,
			},
			Named: map[string]map[string]symbols.Kind{
				"method": {"constructor": symbols.KindConstructor},
			},
			Modifiers:          typescriptModifiers,
			Grammar:            typescriptGrammar,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangPython,
			Kinds: map[string]symbols.Kind{
				"class_definition":    symbols.KindType,
				"function_definition": symbols.KindMethod,
				"variable":            symbols.KindField,
			},
			Named: map[string]map[string]symbols.Kind{
				"function_definition": {"__init__": symbols.KindConstructor},
				"variable":            {"__all__": "", "__slots__": ""},
			},
			Modifiers:          pythonModifiers,
			Visibility:         pythonVisibility,
			Grammar:            pythonGrammar,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangRust,
			Kinds: map[string]symbols.Kind{
				"struct_item":             symbols.KindType,
				"union_item":              symbols.KindType,
				"type_item":               symbols.KindType,
				"impl_item":               symbols.KindType,
				"associated_type":         symbols.KindType,
				"mod_item":                symbols.KindType,
				"enum_item":               symbols.KindEnum,
				"enum_variant":            symbols.KindEnumConstant,
				"trait_item":              symbols.KindInterface,
				"function_item":           symbols.KindMethod,
				"function_signature_item": symbols.KindMethod,
				"const_item":              symbols.KindField,
				"static_item":             symbols.KindField,
				"field_declaration":       symbols.KindField,
			},
			Modifiers:          rustModifiers,
			Grammar:            rustGrammar,
			HeritageSeparators: []string{",", "+"},
		},
		{
			Language: parsers.LangC,
			Kinds: map[string]symbols.Kind{
				"function_definition": symbols.KindMethod,
				"function_prototype":  symbols.KindMethod,
				"macro_function":      symbols.KindMethod,
				"declaration":         symbols.KindField,
				"field_declaration":   symbols.KindField,
				"macro":               symbols.KindField,
				"struct_specifier":    symbols.KindType,
				"union_specifier":     symbols.KindType,
				"typedef":             symbols.KindType,
				"enum_specifier":      symbols.KindEnum,
				"enumerator":          symbols.KindEnumConstant,
			},
			Modifiers:          cModifiers,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangPHP,
			Kinds: map[string]symbols.Kind{
				"class_declaration":     symbols.KindType,
				"trait_declaration":     symbols.KindType,
				"interface_declaration": symbols.KindInterface,
				"enum_declaration":      symbols.KindEnum,
				"enum_case":             symbols.KindEnumConstant,
				"method_declaration":    symbols.KindMethod,
				"function_definition":   symbols.KindMethod,
				"property_declaration":  symbols.KindField,
				"const_declaration":     symbols.KindField,
			},
			Named: map[string]map[string]symbols.Kind{
				"method_declaration": {"__construct": symbols.KindConstructor},
			},
			Modifiers:          phpModifiers,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangRuby,
			Kinds: map[string]symbols.Kind{
				"class":            symbols.KindType,
				"module":           symbols.KindType,
				"method":           symbols.KindMethod,
				"singleton_method": symbols.KindMethod,
				"constant":         symbols.KindField,
			},
			Named: map[string]map[string]symbols.Kind{
				"method": {"initialize": symbols.KindConstructor},
			},
			Modifiers:          rubyModifiers,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangGo,
			Kinds: map[string]symbols.Kind{
				"struct_spec":          symbols.KindType,
				"type_spec":            symbols.KindType,
				"interface_spec":       symbols.KindInterface,
				"field_declaration":    symbols.KindField,
				"var_spec":             symbols.KindField,
				"const_spec":           symbols.KindField,
				"method_elem":          symbols.KindMethod,
				"function_declaration": symbols.KindMethod,
				"method_declaration":   symbols.KindMethod,
			},
			Modifiers:          goModifiers,
			Visibility:         goVisibility,
			Grammar:            goGrammar,
			HeritageSeparators: commaSeparated,
		},
		{
			Language: parsers.LangMarkdown,
			Kinds: map[string]symbols.Kind{
				"section": symbols.KindSection,
			},
			Modifiers: markdownModifiers,
		},
	}
}
