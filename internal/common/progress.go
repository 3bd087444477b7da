package common

// ProgressFunc receives a human-readable status and the completed fraction
// in [0,1]. It is called synchronously from the pipeline goroutine.
type ProgressFunc func(message string, fraction float64)

// Report calls p when it is non-nil, clamping fraction to [0,1].
func (p ProgressFunc) Report(message string, fraction float64) {
	if p == nil {
		return
	}
	switch {
	case fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	p(message, fraction)
}

// Span maps a stage-local fraction in [0,1] onto [lo,hi] of p.
func (p ProgressFunc) Span(lo, hi float64) ProgressFunc {
	if p == nil {
		return nil
	}
	return func(message string, fraction float64) {
		switch {
		case fraction < 0:
			fraction = 0
		case fraction > 1:
			fraction = 1
		}
		p.Report(message, lo+(hi-lo)*fraction)
	}
}

// Step returns the fraction for item i (0-based) of total, reported before
// the item is processed.
func Step(i, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(i) / float64(total)
}
