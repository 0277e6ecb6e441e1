// Package identifier implements the runtime's single addressing scheme:
// every stored entity is named by a typed, hierarchical Identifier rather
// than held by object reference, so that Conversation, Message, and
// ToolCallMessage can point at each other without forming cyclic object
// graphs (they point at identifier strings, resolved later through a
// ResourceIndex).
package identifier

import (
	"fmt"
	"strings"
)

// Identifier is the canonical name of any resource in the system.
//
// Its string form is "parent/type.name", with the parent segment elided
// when empty. Parent may itself be a "/"-separated chain, so identifiers
// nest arbitrarily deep (e.g. a Message's parent is a Conversation,
// whose parent is an Agent).
type Identifier struct {
	Type   string
	Name   string
	Parent string

	// Subjects are semantic subject URIs attached to the entity, used to
	// cross-link it with GraphIndex triples.
	Subjects []string

	// Tokens is the token count of the entity's textual content. It must
	// be set before the identifier is persisted; MemoryWindow's budget
	// filter treats a missing value as fatal corruption.
	Tokens int
}

// New builds an Identifier, stripping a leading "type." prefix from name
// if the caller already supplied one (per the external interface contract
// in spec §6).
func New(typ, name, parent string) Identifier {
	prefix := typ + "."
	if strings.HasPrefix(name, prefix) {
		name = strings.TrimPrefix(name, prefix)
	}
	return Identifier{Type: typ, Name: name, Parent: parent}
}

// WithSubjects returns a copy of id with Subjects set.
func (id Identifier) WithSubjects(subjects []string) Identifier {
	id.Subjects = subjects
	return id
}

// WithTokens returns a copy of id with Tokens set.
func (id Identifier) WithTokens(tokens int) Identifier {
	id.Tokens = tokens
	return id
}

// String renders the canonical "parent/type.name" form. Type and Name
// must both be non-empty; callers that violate this invariant get a
// visibly malformed string ("<invalid-identifier>") rather than a panic,
// since String is frequently called from logging paths.
func (id Identifier) String() string {
	if id.Type == "" || id.Name == "" {
		return "<invalid-identifier>"
	}
	typeName := fmt.Sprintf("%s.%s", id.Type, id.Name)
	if id.Parent == "" {
		return typeName
	}
	return id.Parent + "/" + typeName
}

// Valid reports whether String(id) would produce a well-formed identifier.
func (id Identifier) Valid() bool {
	return id.Type != "" && id.Name != ""
}

// Child returns a new Identifier of the given type/name parented under
// id's own string form — the mechanism a Conversation uses to own its
// Messages and ToolCallMessages without holding a pointer.
func (id Identifier) Child(typ, name string) Identifier {
	return New(typ, name, id.String())
}

// Parse splits a canonical identifier string back into its components.
// It is the inverse of String for well-formed input.
func Parse(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, fmt.Errorf("identifier: empty string")
	}
	parent := ""
	rest := s
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		parent = s[:idx]
		rest = s[idx+1:]
	}
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return Identifier{}, fmt.Errorf("identifier: %q missing type.name separator", s)
	}
	typ := rest[:dot]
	name := rest[dot+1:]
	if typ == "" || name == "" {
		return Identifier{}, fmt.Errorf("identifier: %q has empty type or name", s)
	}
	return Identifier{Type: typ, Name: name, Parent: parent}, nil
}
