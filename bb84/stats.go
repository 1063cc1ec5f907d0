package bb84

// Stats packages together the running counters of a sequence of Events. The
// zero Stats describes an empty run.
type Stats struct {
	TotalPhotons   int
	SameBasisCases int
	MatchingBits   int
	FinalKeyBits   int

	// Errors counts same-basis events whose bits nonetheless disagree.
	Errors int
	// Interceptions counts events the eavesdropper touched, and Disturbed the
	// subset she measured in the wrong basis.
	Interceptions int
	Disturbed     int
}

// Accumulate returns s updated with e. It does not modify s.
func (s Stats) Accumulate(e Event) Stats {
	s.TotalPhotons++
	if e.BasesMatch {
		s.SameBasisCases++
		if e.BitsMatch {
			s.MatchingBits++
		} else {
			s.Errors++
		}
	}
	if e.HasKeyBit() {
		s.FinalKeyBits++
	}
	if e.EavesdropperPresent() {
		s.Interceptions++
	}
	if e.Disturbed {
		s.Disturbed++
	}
	return s
}

// Replay folds events into a fresh Stats.
func Replay(events []Event) Stats {
	var s Stats
	for _, e := range events {
		s = s.Accumulate(e)
	}
	return s
}

// NormalTransmissions returns the number of photons that reached the receiver
// untouched.
func (s Stats) NormalTransmissions() int {
	return s.TotalPhotons - s.Interceptions
}

// ErrorRate returns the percentage of same-basis comparisons that disagree,
// or 0 if there were none.
func (s Stats) ErrorRate() float64 {
	return percent(s.Errors, s.SameBasisCases)
}

// DisturbanceRate returns the percentage of photons that the eavesdropper
// measured in the wrong basis, or 0 if no photons were sent.
func (s Stats) DisturbanceRate() float64 {
	return percent(s.Disturbed, s.TotalPhotons)
}

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return 100 * float64(n) / float64(d)
}
