package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

func pythonSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: parsers.LangPython,
		Rules: map[string]DeclRule{
			"class_definition": {
				Body:       "body",
				TypeParams: "type_parameters",
				Extends:    []string{"superclasses"},
			},
			"function_definition": {
				Body:       "body",
				TypeParams: "type_parameters",
				Type:       "return_type",
				Executable: true,
			},
			// Module and class level assignments to plain names.
			"expression_statement": {
				Kind:      "variable",
				Name:      []string{"assignment/left"},
				NameKinds: []string{"identifier"},
				Require:   "assignment",
				Type:      "assignment/type",
				Body:      "assignment/right",
				Within:    []string{"module", "block"},
				NoLocal:   true,
			},
		},
		ModifierTokens:  set("async"),
		AnnotationKinds: set("decorator"),
		Wrappers: map[string]string{
			"decorated_definition": "definition",
		},
		LocalScopes:  set("lambda"),
		CommentKinds: set("comment"),
	}
}
