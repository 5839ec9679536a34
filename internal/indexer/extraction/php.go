package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

func phpSpec() *LanguageSpec {
	method := DeclRule{
		Type:       "return_type",
		Body:       "body",
		Executable: true,
	}

	return &LanguageSpec{
		Language: parsers.LangPHP,
		Rules: map[string]DeclRule{
			"class_declaration": {
				Body:       "body",
				Extends:    []string{"base_clause"},
				Implements: []string{"class_interface_clause"},
			},
			"interface_declaration": {
				Body:    "body",
				Extends: []string{"base_clause"},
			},
			"trait_declaration": {
				Body:      "body",
				Modifiers: []string{"trait"},
			},
			"enum_declaration": {
				Body:       "body",
				Type:       "primitive_type",
				Implements: []string{"class_interface_clause"},
			},
			"enum_case": {
				Default: "value",
			},
			"method_declaration":  method,
			"function_definition": method,
			"property_declaration": {
				Declarators: "property_element",
				Name:        []string{"name"},
				Type:        "type",
				Default:     "default_value",
			},
			"const_declaration": {
				Declarators: "const_element",
				Type:        "type",
			},
		},
		ModifierContainers: set("attribute_list"),
		ModifierKinds: set(
			"visibility_modifier", "static_modifier", "abstract_modifier",
			"final_modifier", "readonly_modifier", "var_modifier",
		),
		AnnotationKinds:  set("attribute_group"),
		LocalScopes:      set("anonymous_function", "arrow_function", "anonymous_class"),
		MemberContainers: set("declaration_list", "enum_declaration_list"),
		IgnoredMembers:   set("use_declaration"),
		CommentKinds:     set("comment"),
	}
}
