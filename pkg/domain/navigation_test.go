package domain

import "testing"

func strPtr(s string) *string { return &s }

func TestArtifactAtFollowsStep(t *testing.T) {
	rec := ResearchRecord{
		RawReport:     "R1",
		RefinedReport: strPtr("R2"),
		Step:          StepRefined,
	}

	tests := []struct {
		name     string
		position Step
		want     string
		ok       bool
	}{
		{name: "raw", position: StepRaw, want: "R1", ok: true},
		{name: "refined", position: StepRefined, want: "R2", ok: true},
		{name: "beyond record step", position: StepPosted, ok: false},
		{name: "zero", position: 0, ok: false},
		{name: "out of range", position: 4, ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ArtifactAt(rec, tc.position)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("ArtifactAt(%d) = (%q, %v), want (%q, %v)", tc.position, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestArtifactAtPostedWithoutRefinement(t *testing.T) {
	rec := ResearchRecord{
		RawReport: "R1",
		FinalPost: strPtr("P1"),
		Step:      StepPosted,
	}
	if got, ok := ArtifactAt(rec, StepPosted); !ok || got != "P1" {
		t.Fatalf("expected final post at 3, got (%q, %v)", got, ok)
	}
	if _, ok := ArtifactAt(rec, StepRefined); ok {
		t.Fatalf("refined position should be unreachable without a refined report")
	}
}

func TestNavigationBounds(t *testing.T) {
	rec := ResearchRecord{RawReport: "R1", RefinedReport: strPtr("R2"), Step: StepRefined}

	cur := StepRaw
	if CanRetreat(rec, cur) {
		t.Fatalf("cannot retreat from 1")
	}
	cur = Advance(rec, cur)
	if cur != StepRefined {
		t.Fatalf("advance from 1 = %d, want 2", cur)
	}
	if CanAdvance(rec, cur) {
		t.Fatalf("cannot advance past record step")
	}
	if got := Advance(rec, cur); got != StepRefined {
		t.Fatalf("advance at record step should be a no-op, got %d", got)
	}
	cur = Retreat(rec, cur)
	if cur != StepRaw {
		t.Fatalf("retreat from 2 = %d, want 1", cur)
	}
	if got := Retreat(rec, cur); got != StepRaw {
		t.Fatalf("retreat at 1 should be a no-op, got %d", got)
	}
}

func TestNavigationSkipsMissingRefinement(t *testing.T) {
	rec := ResearchRecord{RawReport: "R1", FinalPost: strPtr("P1"), Step: StepPosted}

	if !CanAdvance(rec, StepRaw) {
		t.Fatalf("raw should advance to the post")
	}
	cur := Advance(rec, StepRaw)
	if cur != StepPosted {
		t.Fatalf("advance from 1 = %d, want 3", cur)
	}
	if _, ok := ArtifactAt(rec, cur); !ok {
		t.Fatalf("advance landed on an unreachable position %d", cur)
	}
	if CanAdvance(rec, cur) {
		t.Fatalf("cannot advance past the post")
	}
	if got := Retreat(rec, cur); got != StepRaw {
		t.Fatalf("retreat from 3 = %d, want 1", got)
	}
	if got := PreviousPosition(rec, StepRaw); got != 0 {
		t.Fatalf("nothing before raw, got %d", got)
	}
}

func TestNavigationNeverLandsOnEmptyPosition(t *testing.T) {
	records := []ResearchRecord{
		{RawReport: "R1", Step: StepRaw},
		{RawReport: "R1", RefinedReport: strPtr("R2"), Step: StepRefined},
		{RawReport: "R1", FinalPost: strPtr("P1"), Step: StepPosted},
		{RawReport: "R1", RefinedReport: strPtr("R2"), FinalPost: strPtr("P1"), Step: StepPosted},
	}
	for _, rec := range records {
		for cur := StepRaw; cur <= rec.Step; cur++ {
			if _, ok := ArtifactAt(rec, cur); !ok {
				continue
			}
			if next := NextPosition(rec, cur); next != 0 {
				if _, ok := ArtifactAt(rec, next); !ok {
					t.Fatalf("step %d: next %d from %d is unreachable", rec.Step, next, cur)
				}
			}
			if prev := PreviousPosition(rec, cur); prev != 0 {
				if _, ok := ArtifactAt(rec, prev); !ok {
					t.Fatalf("step %d: previous %d from %d is unreachable", rec.Step, prev, cur)
				}
			}
		}
	}
}

func TestOwnedByScopesIdentity(t *testing.T) {
	userRec := ResearchRecord{UserID: "u1"}
	guestRec := ResearchRecord{GuestID: "g1"}

	if !userRec.OwnedBy(UserIdentity("u1")) {
		t.Fatalf("user record should be owned by its user")
	}
	if userRec.OwnedBy(GuestIdentity("u1")) {
		t.Fatalf("guest with same id must not own a user record")
	}
	if !guestRec.OwnedBy(GuestIdentity("g1")) {
		t.Fatalf("guest record should be owned by its guest")
	}
	if guestRec.OwnedBy(GuestIdentity("g2")) {
		t.Fatalf("other guest must not own the record")
	}
	if guestRec.OwnedBy(Identity{}) {
		t.Fatalf("invalid identity must not own anything")
	}
	both := ResearchRecord{UserID: "u1", GuestID: "g1"}
	if both.OwnedBy(UserIdentity("u1")) || both.OwnedBy(GuestIdentity("g1")) {
		t.Fatalf("record with two ownership tags belongs to nobody")
	}
}

func TestSourceContentPrefersRefined(t *testing.T) {
	rec := ResearchRecord{RawReport: "R1"}
	if got := rec.SourceContent(); got != "R1" {
		t.Fatalf("source = %q, want raw", got)
	}
	rec.RefinedReport = strPtr("R2")
	if got := rec.SourceContent(); got != "R2" {
		t.Fatalf("source = %q, want refined", got)
	}
}
