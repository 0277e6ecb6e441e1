package graph

import "testing"

func TestTripleStoreMatchWildcard(t *testing.T) {
	ts := NewTripleStore()
	ts.Add(
		Quad{Subject: iri("p1"), Predicate: iri(RDFType), Object: iri(personClass)},
		Quad{Subject: iri("p2"), Predicate: iri(RDFType), Object: iri(personClass)},
	)

	got := ts.Match(Pattern{Predicate: "?", Object: personClass})
	if len(got) != 2 {
		t.Errorf("Match = %d quads, want 2", len(got))
	}
}

func TestTripleStoreClear(t *testing.T) {
	ts := NewTripleStore()
	ts.Add(Quad{Subject: iri("p1"), Predicate: iri(RDFType), Object: iri(personClass)})
	ts.Clear()
	if got := ts.Match(Pattern{Subject: "*", Predicate: "*", Object: "*"}); len(got) != 0 {
		t.Errorf("Match after Clear = %d quads, want 0", len(got))
	}
}

func TestResolveTermPrefixedLiteralIRI(t *testing.T) {
	cases := []struct {
		raw      string
		wantKind TermKind
	}{
		{"schema:Person", TermNamedNode},
		{`"hello"`, TermLiteral},
		{"https://schema.org/Person", TermNamedNode},
		{"plainliteral", TermLiteral},
	}
	for _, c := range cases {
		got := ResolveTerm(c.raw)
		if got.TermType != c.wantKind {
			t.Errorf("ResolveTerm(%q).TermType = %v, want %v", c.raw, got.TermType, c.wantKind)
		}
	}
}

func TestIsWildcard(t *testing.T) {
	for _, w := range []string{"", "null", "NULL", "?", "*", "_"} {
		if !IsWildcard(w) {
			t.Errorf("IsWildcard(%q) = false, want true", w)
		}
	}
	if IsWildcard("schema:Person") {
		t.Error("IsWildcard(schema:Person) = true, want false")
	}
}
