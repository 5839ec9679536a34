package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

// javaSpec covers classes, interfaces, enums, records, annotation types and
// anonymous classes.
func javaSpec() *LanguageSpec {
	typeDecl := func(extends, implements []string) DeclRule {
		return DeclRule{
			Body:       "body",
			TypeParams: "type_parameters",
			Extends:    extends,
			Implements: implements,
		}
	}

	record := typeDecl(nil, []string{"interfaces"})
	record.Components = &ComponentRule{
		Container: "parameters",
		Kind:      "formal_parameter",
		RawKind:   "record_component",
		Type:      "type",
	}

	return &LanguageSpec{
		Language: parsers.LangJava,
		Rules: map[string]DeclRule{
			"class_declaration":           typeDecl([]string{"superclass"}, []string{"interfaces"}),
			"interface_declaration":       typeDecl([]string{"extends_interfaces"}, nil),
			"enum_declaration":            typeDecl(nil, []string{"interfaces"}),
			"record_declaration":          record,
			"annotation_type_declaration": {Body: "body"},
			"annotation_type_element_declaration": {
				Type:    "type",
				Default: "value",
			},
			"enum_constant": {
				Arguments: "arguments",
				Body:      "body",
			},
			"field_declaration": {
				Declarators: "declarator",
				Type:        "type",
				Body:        "declarator/value",
			},
			"constant_declaration": {
				Declarators: "declarator",
				Type:        "type",
				Body:        "declarator/value",
			},
			"method_declaration": {
				Type:       "type",
				TypeParams: "type_parameters",
				Body:       "body",
				Executable: true,
			},
			"constructor_declaration": {
				TypeParams: "type_parameters",
				Body:       "body",
				Executable: true,
			},
			"compact_constructor_declaration": {
				Body:       "body",
				Executable: true,
			},
			"object_creation_expression": {
				Kind:       "anonymous_class",
				Name:       []string{"type"},
				Require:    "class_body",
				Body:       "class_body",
				Executable: true,
				Local:      true,
			},
		},
		ModifierContainers: set("modifiers"),
		AnnotationKinds:    set("annotation", "marker_annotation"),
		LocalScopes:        set("lambda_expression", "static_initializer", "block"),
		MemberContainers: set(
			"class_body", "interface_body", "enum_body", "enum_body_declarations",
			"annotation_type_body",
		),
		IgnoredMembers: set("static_initializer", "block"),
		CommentKinds:   set("line_comment", "block_comment"),
	}
}
