package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

// typescriptSpec is shared by TypeScript, TSX and JavaScript trees.
func typescriptSpec() *LanguageSpec {
	class := DeclRule{
		Body:       "body",
		TypeParams: "type_parameters",
		Extends:    []string{"class_heritage/extends_clause"},
		Implements: []string{"class_heritage/implements_clause"},
	}
	function := DeclRule{
		Kind:       "function",
		TypeParams: "type_parameters",
		Type:       "return_type",
		Body:       "body",
		Executable: true,
	}
	method := DeclRule{
		Kind:       "method",
		TypeParams: "type_parameters",
		Type:       "return_type",
		Body:       "body",
		Executable: true,
	}
	signature := DeclRule{
		Kind:       "method",
		TypeParams: "type_parameters",
		Type:       "return_type",
	}
	variable := DeclRule{
		Kind:        "variable",
		Declarators: "variable_declarator",
		Type:        "variable_declarator/type",
		Body:        "variable_declarator/value",
		NoLocal:     true,
	}
	enumMember := DeclRule{
		Kind:         "enum_member",
		NameFromText: true,
		Within:       []string{"enum_body"},
	}

	return &LanguageSpec{
		Language: parsers.LangTypeScript,
		Rules: map[string]DeclRule{
			"class_declaration":          class,
			"abstract_class_declaration": class,
			"interface_declaration": {
				Body:       "body",
				TypeParams: "type_parameters",
				Extends:    []string{"extends_type_clause"},
			},
			"enum_declaration": {Body: "body"},
			"type_alias_declaration": {
				TypeParams: "type_parameters",
				Body:       "value",
			},
			"function_declaration":           function,
			"generator_function_declaration": function,
			"function_signature":             signature,
			"method_definition":              method,
			"method_signature":               signature,
			"abstract_method_signature":      signature,
			"public_field_definition": {
				Kind: "field",
				Type: "type",
				Body: "value",
			},
			"property_signature": {
				Kind:   "field",
				Type:   "type",
				Within: []string{"interface_body", "object_type"},
			},
			"lexical_declaration":  variable,
			"variable_declaration": variable,
			"property_identifier":  enumMember,
			"string":               enumMember,
			"enum_assignment": {
				Kind:    "enum_member",
				Default: "value",
				Within:  []string{"enum_body"},
			},
		},
		ModifierKinds: set("accessibility_modifier", "override_modifier"),
		ModifierTokens: set(
			"export", "default", "declare", "static", "readonly", "abstract",
			"async", "const", "let", "var", "get", "set", "override",
		),
		AnnotationKinds:        set("decorator"),
		LeadingAnnotationKinds: set("decorator"),
		Wrappers: map[string]string{
			"export_statement":    "declaration",
			"ambient_declaration": "",
		},
		LocalScopes: set(
			"arrow_function", "function_expression", "function", "generator_function",
			"class_static_block", "class",
		),
		MemberContainers: set("class_body", "interface_body", "enum_body"),
		IgnoredMembers: set(
			"index_signature", "call_signature", "construct_signature",
			"class_static_block",
		),
		CommentKinds: set("comment"),
	}
}
