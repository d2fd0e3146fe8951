package domain

// ArtifactAt returns the content shown at position for a record: raw report
// at 1, refined report at 2, final post at 3. Positions beyond the record's
// step, or whose artifact is absent, are not reachable.
func ArtifactAt(r ResearchRecord, position Step) (string, bool) {
	if !position.Valid() || position > r.Step {
		return "", false
	}
	switch position {
	case StepRaw:
		return r.RawReport, true
	case StepRefined:
		if r.RefinedReport == nil {
			return "", false
		}
		return *r.RefinedReport, true
	case StepPosted:
		if r.FinalPost == nil {
			return "", false
		}
		return *r.FinalPost, true
	}
	return "", false
}

// NextPosition returns the first reachable position after current, or 0.
// A record posted straight from raw skips the refined position.
func NextPosition(r ResearchRecord, current Step) Step {
	for p := current + 1; p <= r.Step; p++ {
		if _, ok := ArtifactAt(r, p); ok {
			return p
		}
	}
	return 0
}

// PreviousPosition returns the last reachable position before current, or 0.
func PreviousPosition(r ResearchRecord, current Step) Step {
	for p := current - 1; p >= StepRaw; p-- {
		if _, ok := ArtifactAt(r, p); ok {
			return p
		}
	}
	return 0
}

func CanAdvance(r ResearchRecord, current Step) bool {
	return NextPosition(r, current) != 0
}

func CanRetreat(r ResearchRecord, current Step) bool {
	return PreviousPosition(r, current) != 0
}

// Advance moves current to the next reachable position, or keeps it.
func Advance(r ResearchRecord, current Step) Step {
	if next := NextPosition(r, current); next != 0 {
		return next
	}
	return current
}

// Retreat moves current to the previous reachable position, or keeps it.
func Retreat(r ResearchRecord, current Step) Step {
	if prev := PreviousPosition(r, current); prev != 0 {
		return prev
	}
	return current
}
