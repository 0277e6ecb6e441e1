// Package graph implements the RDF triple store layered over IndexBase
// (GraphIndex, spec §4.2), the streaming SHACL shape inference engine
// (OntologyProcessor + ShaclSerializer, spec §4.3), and the prefix/
// wildcard pattern matching both share. No library in the reference
// corpus covers RDF/Turtle/SHACL (see DESIGN.md); this package is the
// one deliberate stdlib-only exception, built the way the teacher
// builds small self-contained domain types: plain structs, explicit
// methods, no code generation.
package graph

import "strings"

// TermKind discriminates an RDF term.
type TermKind string

const (
	TermNamedNode TermKind = "NamedNode"
	TermLiteral   TermKind = "Literal"
	TermBlankNode TermKind = "BlankNode"
)

// Term is one RDF subject, predicate, or object.
type Term struct {
	Value    string   `json:"value"`
	TermType TermKind `json:"termType"`
}

// IsIRI reports whether t names an IRI (NamedNode), which is the only
// term kind that can itself serve as a subject or be typed.
func (t Term) IsIRI() bool { return t.TermType == TermNamedNode }

// Quad is one RDF statement observed in a resource's content.
type Quad struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
}

// RDFType is the rdf:type predicate IRI, resolved through the default
// prefix map.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// DefaultPrefixes is the fixed prefix block spec §6 names for
// ontology.ttl and pattern resolution.
var DefaultPrefixes = map[string]string{
	"rdf":    "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":   "http://www.w3.org/2000/01/rdf-schema#",
	"sh":     "http://www.w3.org/ns/shacl#",
	"dct":    "http://purl.org/dc/terms/",
	"schema": "https://schema.org/",
	"foaf":   "http://xmlns.com/foaf/0.1/",
}

// ResolveTerm maps a pattern term string to a Term per spec §4.2:
// prefixed terms ("schema:Person") resolve through prefixes,
// double-quoted terms are literals, http(s):// terms are IRIs, and
// anything else is a literal.
func ResolveTerm(raw string) Term {
	switch {
	case strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2:
		return Term{Value: strings.Trim(raw, `"`), TermType: TermLiteral}
	case strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://"):
		return Term{Value: raw, TermType: TermNamedNode}
	default:
		if idx := strings.Index(raw, ":"); idx > 0 {
			prefix, local := raw[:idx], raw[idx+1:]
			if base, ok := DefaultPrefixes[prefix]; ok {
				return Term{Value: base + local, TermType: TermNamedNode}
			}
		}
		return Term{Value: raw, TermType: TermLiteral}
	}
}

// IsWildcard reports whether a pattern term stands for "match anything"
// (spec §4.2's wildcard token set).
func IsWildcard(raw string) bool {
	switch raw {
	case "", "null", "NULL", "?", "*", "_":
		return true
	default:
		return false
	}
}
