package reco

// Predicate selects candidates. A nil Predicate accepts everything.
type Predicate func(*Candidate) bool

// Accept evaluates p, treating nil as "accept all".
func (p Predicate) Accept(c *Candidate) bool {
	return p == nil || p(c)
}

// AnnotationCut is the typed form of `userFloat("Name") > Min`.
type AnnotationCut struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
}

// Predicate returns the closure for the cut. A missing annotation fails.
func (a AnnotationCut) Predicate() Predicate {
	return func(c *Candidate) bool {
		v, ok := c.UserFloat(a.Name)
		return ok && v > a.Min
	}
}

// AllOf combines predicates with logical AND. Nil entries are skipped and
// an empty list accepts everything.
func AllOf(preds ...Predicate) Predicate {
	return func(c *Candidate) bool {
		for _, p := range preds {
			if p != nil && !p(c) {
				return false
			}
		}
		return true
	}
}

// Cuts builds an AND of annotation cuts. An empty list yields nil
// (accept all).
func Cuts(cuts []AnnotationCut) Predicate {
	if len(cuts) == 0 {
		return nil
	}
	preds := make([]Predicate, len(cuts))
	for i, cut := range cuts {
		preds[i] = cut.Predicate()
	}
	return AllOf(preds...)
}
