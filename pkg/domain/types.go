package domain

import (
	"strings"
	"time"
)

// Step marks how far a research record has progressed.
type Step int

const (
	StepRaw     Step = 1
	StepRefined Step = 2
	StepPosted  Step = 3
)

// Valid reports whether s is one of the three pipeline stages.
func (s Step) Valid() bool {
	return s >= StepRaw && s <= StepPosted
}

func (s Step) String() string {
	switch s {
	case StepRaw:
		return "raw"
	case StepRefined:
		return "refined"
	case StepPosted:
		return "posted"
	default:
		return "unknown"
	}
}

// MaxStep returns the later of two steps.
func MaxStep(a, b Step) Step {
	if a > b {
		return a
	}
	return b
}

type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityGuest IdentityKind = "guest"
)

// Identity is the unit of ownership: an authenticated user or an anonymous guest.
type Identity struct {
	Kind IdentityKind `json:"kind"`
	ID   string       `json:"id"`
}

func UserIdentity(id string) Identity {
	return Identity{Kind: IdentityUser, ID: strings.TrimSpace(id)}
}

func GuestIdentity(id string) Identity {
	return Identity{Kind: IdentityGuest, ID: strings.TrimSpace(id)}
}

// Valid reports whether the identity has a known kind and a non-empty id.
func (i Identity) Valid() bool {
	if i.ID == "" {
		return false
	}
	return i.Kind == IdentityUser || i.Kind == IdentityGuest
}

func (i Identity) IsGuest() bool {
	return i.Kind == IdentityGuest
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.ID
}

// ResearchRecord tracks one topic through raw report, refined report and final post.
type ResearchRecord struct {
	ID            string    `json:"id"`
	Topic         string    `json:"topic"`
	RawReport     string    `json:"raw_report"`
	RefinedReport *string   `json:"refined_report"`
	FinalPost     *string   `json:"final_post"`
	Step          Step      `json:"step"`
	UserID        string    `json:"user_id,omitempty"`
	GuestID       string    `json:"guest_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Owner returns the identity tagged on the record.
func (r ResearchRecord) Owner() Identity {
	if r.UserID != "" {
		return UserIdentity(r.UserID)
	}
	return GuestIdentity(r.GuestID)
}

// OwnedBy reports whether the record belongs to id. Records carrying both or
// neither ownership tag belong to nobody.
func (r ResearchRecord) OwnedBy(id Identity) bool {
	if !id.Valid() {
		return false
	}
	switch id.Kind {
	case IdentityUser:
		return r.GuestID == "" && r.UserID == id.ID
	case IdentityGuest:
		return r.UserID == "" && r.GuestID == id.ID
	default:
		return false
	}
}

// SourceContent returns the most refined report available: refined over raw.
func (r ResearchRecord) SourceContent() string {
	if r.RefinedReport != nil {
		return *r.RefinedReport
	}
	return r.RawReport
}

// RecordPatch is the partial update written by refine and create-post.
// Nil fields are left untouched; Step is only ever raised by stores.
type RecordPatch struct {
	RefinedReport *string
	FinalPost     *string
	Step          Step
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
