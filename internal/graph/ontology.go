package graph

import "strings"

// oneWaySet is the set of predicates that must never be inferred as
// bidirectional (spec §4.3, glossary "One-way predicate").
var oneWaySet = map[string]bool{
	"https://schema.org/citation":    true,
	"https://schema.org/mentions":    true,
	"https://schema.org/about":       true,
	"https://schema.org/isRelatedTo": true,
	"https://schema.org/references":  true,
	"https://schema.org/sameAs":      true,
	"https://schema.org/url":         true,
}

// directionKey joins a subject class, predicate, and object class into
// the OntologyProcessor's directional-counter key.
func directionKey(subjClass, pred, objClass string) string {
	return subjClass + "|" + pred + "|" + objClass
}

func splitDirectionKey(key string) (subjClass, pred, objClass string, ok bool) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// OntologyProcessor streams RDF quads into a SHACL NodeShape inference
// state (spec §4.3).
type OntologyProcessor struct {
	classSubjects        map[string]map[string]bool
	subjectClasses        map[string]map[string]bool
	classPredicates       map[string]map[string]map[string]bool
	predicateCounts       map[string]int
	predicateObjectTypes  map[string]map[string]int
	predicateDirections   map[string]int
}

// NewOntologyProcessor returns an empty processor.
func NewOntologyProcessor() *OntologyProcessor {
	return &OntologyProcessor{
		classSubjects:       map[string]map[string]bool{},
		subjectClasses:      map[string]map[string]bool{},
		classPredicates:     map[string]map[string]map[string]bool{},
		predicateCounts:     map[string]int{},
		predicateObjectTypes: map[string]map[string]int{},
		predicateDirections: map[string]int{},
	}
}

// Process folds one quad into the running inference state (spec §4.3,
// "process(quad) rules").
func (p *OntologyProcessor) Process(q Quad) {
	pred := q.Predicate.Value
	p.predicateCounts[pred]++

	if pred == RDFType {
		if !q.Object.IsIRI() {
			return
		}
		class := q.Object.Value
		subj := q.Subject.Value

		if p.classSubjects[class] == nil {
			p.classSubjects[class] = map[string]bool{}
		}
		p.classSubjects[class][subj] = true

		if p.subjectClasses[subj] == nil {
			p.subjectClasses[subj] = map[string]bool{}
		}
		p.subjectClasses[subj][class] = true
		return
	}

	subjClasses := p.subjectClasses[q.Subject.Value]
	if len(subjClasses) == 0 {
		return
	}

	for subjClass := range subjClasses {
		if p.classPredicates[subjClass] == nil {
			p.classPredicates[subjClass] = map[string]map[string]bool{}
		}
		if p.classPredicates[subjClass][pred] == nil {
			p.classPredicates[subjClass][pred] = map[string]bool{}
		}
		p.classPredicates[subjClass][pred][q.Subject.Value] = true

		if !q.Object.IsIRI() {
			continue
		}
		objClasses := p.subjectClasses[q.Object.Value]
		for objClass := range objClasses {
			if p.predicateObjectTypes[pred] == nil {
				p.predicateObjectTypes[pred] = map[string]int{}
			}
			p.predicateObjectTypes[pred][objClass]++
			p.predicateDirections[directionKey(subjClass, pred, objClass)]++
		}
	}
}

// inversePair records a confirmed A|p|B <-> B|q|A pairing.
type inversePair struct {
	forwardKey string
	inverse    string
}

// inferInverses implements spec §4.3's "Inverse inference (on
// getData())": for every directional key with a candidate on the
// reverse side whose count ratio lies in [0.8, 1.25], pair the two
// predicates, skipping the one-way set and rejecting conflicting
// pairings (a predicate gets at most one inverse).
func (p *OntologyProcessor) inferInverses() map[string]string {
	assigned := map[string]string{} // predicate -> its inverse predicate
	pairedWith := map[string]string{}

	type candidate struct {
		key   string
		ratio float64
		count int
	}

	for key, f := range p.predicateDirections {
		if f <= 0 {
			continue
		}
		subjClass, pred, objClass, ok := splitDirectionKey(key)
		if !ok || oneWaySet[pred] {
			continue
		}
		if _, done := assigned[pred]; done {
			continue
		}

		var best *candidate
		for otherKey, r := range p.predicateDirections {
			otherSubj, otherPred, otherObj, ok := splitDirectionKey(otherKey)
			if !ok || oneWaySet[otherPred] {
				continue
			}
			// A predicate may pair with itself only when both ends sit on
			// the same class (Person|knows|Person); otherwise this would
			// also match every unrelated same-named predicate across classes.
			if otherPred == pred && subjClass != objClass {
				continue
			}
			if otherSubj != objClass || otherObj != subjClass {
				continue
			}
			if r <= 0 {
				continue
			}
			ratioFwd := float64(r) / float64(f)
			ratioBack := float64(f) / float64(r)
			if ratioFwd < 0.8 || ratioFwd > 1.25 || ratioBack < 0.8 || ratioBack > 1.25 {
				continue
			}
			if best == nil || r > best.count {
				best = &candidate{key: otherKey, ratio: ratioFwd, count: r}
			}
		}

		if best == nil {
			continue
		}
		_, invPred, _, _ := splitDirectionKey(best.key)

		if existing, ok := pairedWith[pred]; ok && existing != invPred {
			continue
		}
		if existing, ok := pairedWith[invPred]; ok && existing != pred {
			continue
		}

		assigned[pred] = invPred
		assigned[invPred] = pred
		pairedWith[pred] = invPred
		pairedWith[invPred] = pred
	}

	return assigned
}

// ClassSummary is one class's inferred shape data, ready for
// serialization.
type ClassSummary struct {
	ClassIRI       string
	InstanceCount  int
	Predicates     []PredicateSummary
}

// PredicateSummary is one predicate observed on a class's instances.
type PredicateSummary struct {
	PredicateIRI     string
	DistinctSubjects int
	GlobalCount      int
	DominantClass    string
	DominantShare    float64
	InversePath      string
}

// Summarize produces the serializer's input: every observed class with
// its predicates, in no particular order (ShaclSerializer sorts classes
// and predicates before emitting them).
func (p *OntologyProcessor) Summarize() []ClassSummary {
	inverses := p.inferInverses()

	summaries := make([]ClassSummary, 0, len(p.classSubjects))
	for class, subjects := range p.classSubjects {
		cs := ClassSummary{ClassIRI: class, InstanceCount: len(subjects)}

		for pred, subjSet := range p.classPredicates[class] {
			ps := PredicateSummary{
				PredicateIRI:     pred,
				DistinctSubjects: len(subjSet),
				GlobalCount:      p.predicateCounts[pred],
			}

			if objTypes := p.predicateObjectTypes[pred]; len(objTypes) > 0 {
				var total int
				var dominantClass string
				var dominantCount int
				for objClass, count := range objTypes {
					total += count
					if count > dominantCount {
						dominantCount = count
						dominantClass = objClass
					}
				}
				if total > 0 && float64(dominantCount)/float64(total) > 0.5 {
					ps.DominantClass = dominantClass
					ps.DominantShare = float64(dominantCount) / float64(total)
					if inv, ok := inverses[pred]; ok {
						ps.InversePath = inv
					}
				}
			}

			cs.Predicates = append(cs.Predicates, ps)
		}

		summaries = append(summaries, cs)
	}

	return summaries
}
