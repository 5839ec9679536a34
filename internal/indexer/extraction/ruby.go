package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

func rubySpec() *LanguageSpec {
	return &LanguageSpec{
		Language: parsers.LangRuby,
		Rules: map[string]DeclRule{
			"class": {
				Body:    "body",
				Extends: []string{"superclass"},
			},
			"module": {
				Body:      "body",
				Modifiers: []string{"module"},
			},
			"method": {
				Body:       "body",
				Executable: true,
			},
			"singleton_method": {
				Body:       "body",
				Receiver:   "object",
				Modifiers:  []string{"static"},
				Executable: true,
			},
			// Constant assignments at program or class level.
			"assignment": {
				Kind:      "constant",
				Name:      []string{"left"},
				NameKinds: []string{"constant"},
				Body:      "right",
				Within:    []string{"program", "body_statement"},
				NoLocal:   true,
			},
		},
		LocalScopes:  set("block", "do_block", "lambda"),
		CommentKinds: set("comment"),
	}
}
