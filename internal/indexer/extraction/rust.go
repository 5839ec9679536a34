package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

func rustSpec() *LanguageSpec {
	fn := DeclRule{
		TypeParams: "type_parameters",
		Type:       "return_type",
		Body:       "body",
		Executable: true,
	}

	return &LanguageSpec{
		Language: parsers.LangRust,
		Rules: map[string]DeclRule{
			"struct_item": {Body: "body", TypeParams: "type_parameters"},
			"union_item":  {Body: "body", TypeParams: "type_parameters"},
			"enum_item":   {Body: "body", TypeParams: "type_parameters"},
			"enum_variant": {
				Body:    "field_declaration_list",
				Default: "value",
			},
			"trait_item": {
				Body:       "body",
				TypeParams: "type_parameters",
				Extends:    []string{"bounds"},
			},
			"impl_item": {
				Name:       []string{"type"},
				Body:       "body",
				TypeParams: "type_parameters",
				Implements: []string{"trait"},
				Modifiers:  []string{"impl"},
			},
			"function_item":           fn,
			"function_signature_item": {TypeParams: "type_parameters", Type: "return_type"},
			"const_item":              {Type: "type", Body: "value"},
			"static_item":             {Type: "type", Body: "value"},
			"type_item":               {TypeParams: "type_parameters", Type: "type", Body: "type"},
			"associated_type":         {Extends: []string{"bounds"}},
			"field_declaration":       {Type: "type"},
			"mod_item":                {Body: "body", Modifiers: []string{"mod"}},
		},
		ModifierContainers:     set("function_modifiers"),
		ModifierKinds:          set("visibility_modifier", "mutable_specifier"),
		ModifierTokens:         set("static", "const", "unsafe", "async", "default"),
		AnnotationKinds:        set("attribute_item"),
		LeadingAnnotationKinds: set("attribute_item"),
		LocalScopes:            set("closure_expression"),
		MemberContainers:       set("declaration_list", "field_declaration_list", "enum_variant_list"),
		IgnoredMembers: set(
			"use_declaration", "macro_invocation", "macro_definition",
			"extern_crate_declaration", "inner_attribute_item", "empty_statement",
			"foreign_mod_item",
		),
		CommentKinds: set("line_comment", "block_comment"),
	}
}
