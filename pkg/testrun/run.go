package testrun

// Run is an immutable, ordered tree of suites and cases.
type Run struct {
	suites []Suite
	index  map[string]position
	total  int
}

type position struct {
	suite, kase int
}

// New seals suites into a Run. Cases without a FullName get one from FullNameOf.
// When a full name appears more than once, the first position is kept and the
// worst outcome (Fail > Pass > Skipped) is recorded there, so names stay unique.
func New(suites []Suite) *Run {
	r := &Run{index: make(map[string]position)}
	for _, s := range suites {
		si := r.suiteIndex(s.Name)
		if si < 0 {
			r.suites = append(r.suites, Suite{Name: s.Name, Duration: s.Duration})
			si = len(r.suites) - 1
		} else {
			r.suites[si].Duration += s.Duration
		}
		for _, c := range s.Cases {
			if c.Suite == "" {
				c.Suite = s.Name
			}
			if c.FullName == "" {
				c.FullName = FullNameOf(c.Suite, c.Name)
			}
			if c.Output != nil {
				c.Output = append([]string(nil), c.Output...)
			}
			if pos, dup := r.index[c.FullName]; dup {
				prev := &r.suites[pos.suite].Cases[pos.kase]
				if c.Outcome.severity() > prev.Outcome.severity() {
					prev.Outcome = c.Outcome
					prev.Output = c.Output
				}
				continue
			}
			r.suites[si].Cases = append(r.suites[si].Cases, c)
			r.index[c.FullName] = position{suite: si, kase: len(r.suites[si].Cases) - 1}
			r.total++
		}
	}
	return r
}

// Merge concatenates runs in order, applying the same duplicate rule as New.
func Merge(runs ...*Run) *Run {
	var suites []Suite
	for _, r := range runs {
		if r == nil {
			continue
		}
		suites = append(suites, r.suites...)
	}
	return New(suites)
}

func (r *Run) suiteIndex(name string) int {
	for i := range r.suites {
		if r.suites[i].Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of distinct cases.
func (r *Run) Len() int {
	if r == nil {
		return 0
	}
	return r.total
}

// IsEmpty reports whether the run holds no cases.
func (r *Run) IsEmpty() bool { return r.Len() == 0 }

// Suites returns a copy of the suite list in parser order.
func (r *Run) Suites() []Suite {
	if r == nil {
		return nil
	}
	out := make([]Suite, len(r.suites))
	for i, s := range r.suites {
		out[i] = Suite{Name: s.Name, Duration: s.Duration, Cases: append([]Case(nil), s.Cases...)}
	}
	return out
}

// Cases returns every case in suite/case traversal order.
func (r *Run) Cases() []Case {
	if r == nil {
		return nil
	}
	out := make([]Case, 0, r.total)
	for _, s := range r.suites {
		out = append(out, s.Cases...)
	}
	return out
}

// Failed returns the failing cases in traversal order.
func (r *Run) Failed() []Case {
	var out []Case
	for _, c := range r.Cases() {
		if c.Outcome == Fail {
			out = append(out, c)
		}
	}
	return out
}

// Case looks a case up by full name.
func (r *Run) Case(fullName string) (Case, bool) {
	if r == nil {
		return Case{}, false
	}
	pos, ok := r.index[fullName]
	if !ok {
		return Case{}, false
	}
	return r.suites[pos.suite].Cases[pos.kase], true
}

// Has reports whether the run contains a case with this full name.
func (r *Run) Has(fullName string) bool {
	_, ok := r.Case(fullName)
	return ok
}
