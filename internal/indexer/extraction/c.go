package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

func cSpec() *LanguageSpec {
	declarator := []string{"declarator"}

	return &LanguageSpec{
		Language: parsers.LangC,
		Rules: map[string]DeclRule{
			"function_definition": {
				Name:       declarator,
				Type:       "type",
				Body:       "body",
				Executable: true,
			},
			// Prototypes and global variables.
			"declaration": {
				Name:            declarator,
				Declarators:     "declarator",
				DeclaratorKinds: map[string]string{"function_declarator": "function_prototype"},
				Type:            "type",
				Default:         "value",
				NoLocal:         true,
			},
			"struct_specifier": {Body: "body", Require: "body"},
			"union_specifier":  {Body: "body", Require: "body"},
			"enum_specifier":   {Body: "body", Require: "body"},
			"enumerator": {
				Default: "value",
				Within:  []string{"enumerator_list"},
			},
			"type_definition": {
				Kind:        "typedef",
				Name:        declarator,
				Declarators: "declarator",
				Type:        "type",
			},
			"field_declaration": {
				Name:        declarator,
				Declarators: "declarator",
				Type:        "type",
			},
			"preproc_def": {
				Kind:      "macro",
				Default:   "value",
				Modifiers: []string{"define"},
			},
			"preproc_function_def": {
				Kind:      "macro_function",
				Modifiers: []string{"define"},
			},
		},
		ModifierKinds:    set("storage_class_specifier", "type_qualifier"),
		MemberContainers: set("field_declaration_list", "enumerator_list"),
		IgnoredMembers: set(
			"preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif",
			"preproc_call", "preproc_include",
		),
		CommentKinds: set("comment"),
	}
}
