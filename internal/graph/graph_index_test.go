package graph

import (
	"context"
	"testing"

	"github.com/haasonsaas/nexus/internal/index"
	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/pkg/identifier"
)

func TestGraphIndexQueryItemsReturnsMatchingResourceIdentifiers(t *testing.T) {
	ctx := context.Background()
	gi := NewGraphIndex(objectstore.NewMemoryStore(), "graph.jsonl", "ontology.ttl")

	id1 := identifier.New("message", "m1", "conv").WithTokens(5)
	id2 := identifier.New("message", "m2", "conv").WithTokens(5)

	gi.Add(ctx, id1, []Quad{typeQuad("https://example.org/alice", personClass)})
	gi.Add(ctx, id2, []Quad{objQuad("https://example.org/bob", knowsPred, "https://example.org/carol")})

	ids, err := gi.QueryItems(ctx, Pattern{Predicate: RDFType, Object: "schema:Person"}, index.Filter{})
	if err != nil {
		t.Fatalf("QueryItems: %v", err)
	}
	if len(ids) != 1 || ids[0].String() != id1.String() {
		t.Errorf("QueryItems = %+v, want only %s", ids, id1.String())
	}
}

func TestGraphIndexGetSubjectsWithSynonym(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	ontology := `@prefix schema: <https://schema.org/> .
@prefix skos: <http://www.w3.org/2004/02/skos/core#> .

schema:PersonShape a sh:NodeShape ;
  skos:altLabel "Human" .
`
	store.Put(ctx, "ontology.ttl", []byte(ontology))

	gi := NewGraphIndex(store, "graph.jsonl", "ontology.ttl")
	id := identifier.New("message", "m1", "conv").WithTokens(5)
	gi.Add(ctx, id, []Quad{typeQuad("https://example.org/dana", "https://schema.org/Human")})

	subjects, err := gi.GetSubjects(ctx, "schema:Person")
	if err != nil {
		t.Fatalf("GetSubjects: %v", err)
	}
	if subjects["https://example.org/dana"] != "https://schema.org/Human" {
		t.Errorf("GetSubjects = %+v, want dana via Human synonym", subjects)
	}
}
