package extraction

import (
	"github.com/mvp-joe/symmap/internal/indexer/parsers"
)

// markdownSpec reads the section tree built by the Markdown adapter. The
// heading level (h1..h6) is kept as a modifier token.
func markdownSpec() *LanguageSpec {
	return &LanguageSpec{
		Language: parsers.LangMarkdown,
		Rules: map[string]DeclRule{
			"section": {Body: "body"},
		},
		ModifierKinds: set("heading_level"),
	}
}
