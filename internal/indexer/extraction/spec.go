package extraction

// kindSet is a set of node kinds.
type kindSet map[string]bool

func set(kinds ...string) kindSet {
	s := make(kindSet, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// LanguageSpec is the extraction table for one language. Adding a language
// means adding a LanguageSpec, not changing the walker.
//
// Node references used by rules ("ref") name a grammar field first and fall
// back to the first child of that kind. A "/" separated ref walks nested
// nodes, e.g. "class_heritage/extends_clause".
type LanguageSpec struct {
	Language string
	Rules    map[string]DeclRule

	// ModifierContainers are child kinds whose children are modifier tokens
	// or annotations (Java "modifiers").
	ModifierContainers kindSet
	// ModifierKinds are named child kinds whose text is one modifier token.
	ModifierKinds kindSet
	// ModifierTokens are anonymous keyword tokens accepted as modifiers.
	ModifierTokens kindSet
	// AnnotationKinds are annotation usage kinds attached to the declaration
	// that owns them.
	AnnotationKinds kindSet
	// LeadingAnnotationKinds are sibling nodes that decorate the next
	// declaration (Rust attributes, TypeScript member decorators).
	LeadingAnnotationKinds kindSet
	// Wrappers map wrapper kinds to the field holding the wrapped
	// declaration. An empty field selects the first child with a rule.
	Wrappers map[string]string
	// LocalScopes are executable constructs outside declarations, such as
	// lambdas and initializer blocks.
	LocalScopes kindSet
	// MemberContainers are declaration bodies. Named children that match no
	// rule and are not ignored become UnknownConstruct declarations.
	MemberContainers kindSet
	IgnoredMembers   kindSet
	CommentKinds     kindSet
}

// DeclRule describes how to read one declaration-bearing node kind.
type DeclRule struct {
	// Kind overrides the emitted native kind tag.
	Kind string
	// Name is the ref chain to the name node, descended repeatedly (C
	// declarators). Defaults to "name".
	Name []string
	// NameFromText uses the node's own text as the name.
	NameFromText bool
	// NameKinds restricts the kind of the resolved name node.
	NameKinds []string

	// Declarators emits one declaration per matching child when there is
	// more than one (int a, b;).
	Declarators string
	// DeclaratorKinds overrides Kind when the declarator chain contains a
	// node of the given kind (C function prototypes).
	DeclaratorKinds map[string]string

	Body       string
	Type       string
	TypeParams string
	Extends    []string
	Implements []string
	// Arguments names the node whose named children are constructor arguments.
	Arguments string
	Default   string
	Receiver  string

	Components *ComponentRule

	// Modifiers are implicit tokens added to every declaration of this kind.
	Modifiers []string
	// Executable marks declarations whose contents are executable code.
	Executable bool
	// Local marks the declaration itself as local.
	Local bool

	// Within restricts the rule to nodes whose parent has one of these kinds.
	Within []string
	// Require is a ref that must resolve for the node to be a declaration.
	Require string
	// NoLocal skips the rule inside executable code.
	NoLocal bool
}

// ComponentRule emits the components of a record-like declaration.
type ComponentRule struct {
	Container string // Ref to the component list
	Kind      string // Node kind of one component
	RawKind   string // Emitted native kind tag
	Name      []string
	Type      string
}

func (r DeclRule) nameRefs() []string {
	if len(r.Name) == 0 {
		return []string{"name"}
	}
	return r.Name
}

func (r DeclRule) within(parentKind string) bool {
	if len(r.Within) == 0 {
		return true
	}
	for _, k := range r.Within {
		if k == parentKind {
			return true
		}
	}
	return false
}
