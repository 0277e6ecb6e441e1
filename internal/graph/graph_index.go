package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/haasonsaas/nexus/internal/index"
	"github.com/haasonsaas/nexus/internal/objectstore"
	"github.com/haasonsaas/nexus/pkg/identifier"
)

// Record is the JSONL envelope GraphIndex persists: a resource's
// identifier plus every quad harvested from its content (spec §6,
// "GraphIndex: {id, identifier, quads[]}").
type Record struct {
	IDField    string                `json:"id"`
	Identifier identifier.Identifier `json:"identifier"`
	Quads      []Quad                `json:"quads"`
}

func (r Record) RecordID() string { return r.IDField }

func (r Record) RecordTokens() (int, bool) {
	if r.Identifier.Tokens <= 0 {
		return 0, false
	}
	return r.Identifier.Tokens, true
}

func (r Record) MatchesPrefix(prefix string) bool {
	return strings.HasPrefix(r.Identifier.String(), prefix)
}

// Index is the RDF triple store layered over IndexBase (spec §4.2).
type Index struct {
	base        *index.IndexBase[Record]
	store       objectstore.Store
	ontologyKey string
	triples     *TripleStore
}

// NewGraphIndex returns a GraphIndex persisted at indexKey, with its
// companion Turtle ontology file at ontologyKey (spec §6,
// "ontology.ttl alongside the graph index").
func NewGraphIndex(store objectstore.Store, indexKey, ontologyKey string) *Index {
	gi := &Index{
		store:       store,
		ontologyKey: ontologyKey,
		triples:     NewTripleStore(),
	}
	gi.base = index.New[Record](store, indexKey, func(rec Record) {
		gi.triples.Add(rec.Quads...)
	})
	return gi
}

// Add records a resource's quads, both in the backing JSONL object and
// the in-process triple store.
func (gi *Index) Add(ctx context.Context, id identifier.Identifier, quads []Quad) error {
	return gi.base.Add(ctx, Record{IDField: id.String(), Identifier: id, Quads: quads})
}

// ensureLoaded triggers IndexBase's one-time loadData, whose onLoaded
// replay feeds every surviving record's quads into the triple store.
// It does not clear the triple store: the store starts empty and is
// filled only by that replay and by Add.
func (gi *Index) ensureLoaded(ctx context.Context) error {
	_, err := gi.base.FindAll(ctx)
	return err
}

// QueryItems matches pattern against the triple store and returns the
// identifiers of resources containing at least one matching subject,
// with filter applied to those identifiers (spec §4.2).
func (gi *Index) QueryItems(ctx context.Context, pattern Pattern, filter index.Filter) ([]identifier.Identifier, error) {
	if err := gi.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	matches := gi.triples.Match(pattern)
	matchedSubjects := make(map[string]bool, len(matches))
	for _, q := range matches {
		matchedSubjects[q.Subject.Value] = true
	}

	records, err := gi.base.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Record
	for _, rec := range records {
		for _, q := range rec.Quads {
			if matchedSubjects[q.Subject.Value] {
				candidates = append(candidates, rec)
				break
			}
		}
	}

	ids := make([]identifier.Identifier, 0, len(candidates))
	for _, rec := range candidates {
		if filter.Prefix != "" && !rec.MatchesPrefix(filter.Prefix) {
			continue
		}
		ids = append(ids, rec.Identifier)
	}
	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	if filter.MaxTokens > 0 {
		var sum int
		out := ids[:0:0]
		for _, id := range ids {
			if id.Tokens <= 0 {
				return nil, &index.BudgetMissingTokensError{ID: id.String()}
			}
			if sum+id.Tokens > filter.MaxTokens {
				break
			}
			sum += id.Tokens
			out = append(out, id)
		}
		ids = out
	}
	return ids, nil
}

var altLabelPattern = regexp.MustCompile(`schema:(\w+)Shape[^.]*skos:altLabel\s+"([^"]+)"`)

// GetSubjects returns a map subjectIRI -> typeIRI for subjects whose
// rdf:type matches typeQuery ("schema:Person" or a bare local name) or
// any synonym harvested from the companion ontology.ttl (spec §4.2).
func (gi *Index) GetSubjects(ctx context.Context, typeQuery string) (map[string]string, error) {
	if err := gi.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	typeIRI := ResolveTerm(typeQuery).Value
	candidateIRIs := map[string]bool{typeIRI: true}

	localName := localNameOf(typeQuery)
	synonymIRIs, err := gi.synonymIRIsFor(ctx, localName)
	if err != nil {
		return nil, err
	}
	for _, iri := range synonymIRIs {
		candidateIRIs[iri] = true
	}

	out := map[string]string{}
	for _, q := range gi.triples.Match(Pattern{Predicate: RDFType}) {
		if candidateIRIs[q.Object.Value] {
			out[q.Subject.Value] = q.Object.Value
		}
	}
	return out, nil
}

func localNameOf(typeQuery string) string {
	if idx := strings.Index(typeQuery, ":"); idx >= 0 {
		return typeQuery[idx+1:]
	}
	return typeQuery
}

// synonymIRIsFor reads ontology.ttl and extracts every altLabel synonym
// declared for the NodeShape named <localName>Shape, returning each as
// its schema.org equivalent type IRI.
func (gi *Index) synonymIRIsFor(ctx context.Context, localName string) ([]string, error) {
	raw, err := gi.store.Get(ctx, gi.ontologyKey)
	if err != nil {
		if _, ok := err.(*objectstore.ErrNotExist); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("graph: read ontology: %w", err)
	}

	var synonyms []string
	for _, m := range altLabelPattern.FindAllStringSubmatch(string(raw), -1) {
		shapeType, altLabel := m[1], m[2]
		if shapeType == localName {
			synonyms = append(synonyms, "https://schema.org/"+altLabel)
		}
	}
	return synonyms, nil
}
