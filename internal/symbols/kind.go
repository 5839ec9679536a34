package symbols

import (
	"fmt"
	"strings"
)

// Kind is the unified symbol kind. A symbol never changes kind after creation.
type Kind string

const (
	KindType                 Kind = "type"
	KindInterface            Kind = "interface"
	KindEnum                 Kind = "enum"
	KindEnumConstant         Kind = "enum_constant"
	KindRecord               Kind = "record"
	KindRecordComponent      Kind = "record_component"
	KindMethod               Kind = "method"
	KindField                Kind = "field"
	KindConstructor          Kind = "constructor"
	KindAnnotationDefinition Kind = "annotation_definition"
	KindSection              Kind = "section" // Document heading
)

// AllKinds lists every unified kind in a stable order.
var AllKinds = []Kind{
	KindType,
	KindInterface,
	KindEnum,
	KindEnumConstant,
	KindRecord,
	KindRecordComponent,
	KindMethod,
	KindField,
	KindConstructor,
	KindAnnotationDefinition,
	KindSection,
}

// IsTypeLike reports whether symbols of this kind can own members.
func (k Kind) IsTypeLike() bool {
	switch k {
	case KindType, KindInterface, KindEnum, KindRecord, KindAnnotationDefinition, KindSection:
		return true
	}
	return false
}

// ParseKind accepts the canonical name plus a few common aliases.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, k := range AllKinds {
		if string(k) == norm {
			return k, nil
		}
	}
	switch norm {
	case "class", "struct":
		return KindType, nil
	case "function", "func":
		return KindMethod, nil
	case "annotation", "annotation_def":
		return KindAnnotationDefinition, nil
	case "constant", "enum_member", "variant":
		return KindEnumConstant, nil
	case "component":
		return KindRecordComponent, nil
	case "heading", "header":
		return KindSection, nil
	}
	return "", fmt.Errorf("unknown symbol kind: %q", s)
}

// Visibility is the unified access level.
type Visibility string

const (
	VisibilityUnspecified Visibility = ""
	VisibilityPublic      Visibility = "public"
	VisibilityProtected   Visibility = "protected"
	VisibilityPrivate     Visibility = "private"
	VisibilityPackage     Visibility = "package"
)
