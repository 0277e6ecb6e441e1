package graph

import (
	"fmt"
	"sort"
	"strings"
)

// ShaclSerializer renders an OntologyProcessor's inferred shapes as
// Turtle (spec §4.3, "Serialization").
type ShaclSerializer struct {
	Source string // dct:source value stamped on every NodeShape
}

// NewShaclSerializer returns a serializer attributing every shape to
// source.
func NewShaclSerializer(source string) *ShaclSerializer {
	return &ShaclSerializer{Source: source}
}

func localName(iri string) string {
	if idx := strings.LastIndexAny(iri, "/#"); idx >= 0 {
		return iri[idx+1:]
	}
	return iri
}

// Serialize renders classes (already the processor's Summarize output)
// as a Turtle document: classes in descending instance-count order,
// each with a NodeShape and its predicates as blank-node PropertyShapes
// ordered by descending distinct-subject count, ties broken by global
// predicate count (spec §4.3).
func (s *ShaclSerializer) Serialize(classes []ClassSummary) string {
	sorted := make([]ClassSummary, len(classes))
	copy(sorted, classes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].InstanceCount != sorted[j].InstanceCount {
			return sorted[i].InstanceCount > sorted[j].InstanceCount
		}
		return sorted[i].ClassIRI < sorted[j].ClassIRI
	})

	var b strings.Builder
	b.WriteString(prefixHeader())

	for _, class := range sorted {
		name := localName(class.ClassIRI)
		fmt.Fprintf(&b, "schema:%sShape a sh:NodeShape ;\n", name)
		fmt.Fprintf(&b, "  sh:targetClass <%s> ;\n", class.ClassIRI)
		fmt.Fprintf(&b, "  dct:source %q ;\n", s.Source)
		fmt.Fprintf(&b, "  sh:name %q ;\n", name)
		fmt.Fprintf(&b, "  sh:comment \"Instances: %d\" ;\n", class.InstanceCount)
		descTerm := " .\n"
		if len(class.Predicates) > 0 {
			descTerm = " ;\n"
		}
		fmt.Fprintf(&b, "  dct:description \"Inferred shape for %s\"%s", name, descTerm)

		preds := make([]PredicateSummary, len(class.Predicates))
		copy(preds, class.Predicates)
		sort.Slice(preds, func(i, j int) bool {
			if preds[i].DistinctSubjects != preds[j].DistinctSubjects {
				return preds[i].DistinctSubjects > preds[j].DistinctSubjects
			}
			if preds[i].GlobalCount != preds[j].GlobalCount {
				return preds[i].GlobalCount > preds[j].GlobalCount
			}
			return preds[i].PredicateIRI < preds[j].PredicateIRI
		})

		for i, pred := range preds {
			b.WriteString("  sh:property [\n")
			fmt.Fprintf(&b, "    sh:path <%s> ;\n", pred.PredicateIRI)
			fmt.Fprintf(&b, "    sh:name %q ;\n", localName(pred.PredicateIRI))
			fmt.Fprintf(&b, "    sh:comment \"Instances: %d\" ;\n", pred.DistinctSubjects)
			if pred.DominantClass != "" {
				fmt.Fprintf(&b, "    sh:class <%s> ;\n", pred.DominantClass)
				b.WriteString("    sh:nodeKind sh:IRI ;\n")
				if pred.InversePath != "" {
					fmt.Fprintf(&b, "    sh:inversePath <%s> ;\n", pred.InversePath)
				}
			}
			b.WriteString("  ]")
			if i < len(preds)-1 {
				b.WriteString(" ,\n")
			} else {
				b.WriteString(" .\n")
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func prefixHeader() string {
	var b strings.Builder
	order := []string{"rdf", "rdfs", "sh", "dct", "schema", "foaf"}
	for _, prefix := range order {
		fmt.Fprintf(&b, "@prefix %s: <%s> .\n", prefix, DefaultPrefixes[prefix])
	}
	b.WriteString("\n")
	return b.String()
}
