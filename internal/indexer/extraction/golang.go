package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

// goSpec reads the tree built by the go/ast adapter.
func goSpec() *LanguageSpec {
	typeSpec := DeclRule{
		Body:       "body",
		TypeParams: "type_parameters",
		Extends:    []string{"extends"},
	}
	value := DeclRule{
		Declarators: "name",
		Type:        "type",
	}
	fn := DeclRule{
		TypeParams: "type_parameters",
		Type:       "result",
		Receiver:   "receiver",
		Body:       "body",
		Executable: true,
	}

	return &LanguageSpec{
		Language: parsers.LangGo,
		Rules: map[string]DeclRule{
			"struct_spec":    typeSpec,
			"interface_spec": typeSpec,
			"type_spec": {
				TypeParams: "type_parameters",
				Type:       "type",
			},
			"field_declaration": {
				Declarators: "name",
				Type:        "type",
			},
			"method_elem":          {Type: "result"},
			"var_spec":             value,
			"const_spec":           value,
			"function_declaration": fn,
			"method_declaration":   fn,
		},
		ModifierTokens:   set("embedded"),
		LocalScopes:      set("func_literal"),
		MemberContainers: set("field_declaration_list", "interface_body"),
	}
}
