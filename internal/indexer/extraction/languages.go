package extraction

// DefaultSpecs returns the extraction tables for every shipped language.
// TSX and JavaScript trees use the TypeScript table.
func DefaultSpecs() []*LanguageSpec {
	return []*LanguageSpec{
		javaSpec(),
		typescriptSpec(),
		pythonSpec(),
		rustSpec(),
		cSpec(),
		phpSpec(),
		rubySpec(),
		goSpec(),
		markdownSpec(),
	}
}
