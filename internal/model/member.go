package model

import (
	"strconv"
	"strings"

	"github.com/gosimple/unidecode"

	"gymschedule/internal/slots"
)

// Member is one person of the roster.
type Member struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TrainingHour string `json:"training_hour"`
	Email        string `json:"email,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Reservation books a member into a slot.
type Reservation struct {
	Member string     `json:"member"`
	Slot   slots.Slot `json:"slot"`
}

// NormalizeName turns a display name into the base of a member id:
// transliterated to ASCII, lowercased, spaces to underscores, everything else
// but letters and underscores dropped.
func NormalizeName(name string) string {
	ascii := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(name)))

	var b strings.Builder
	for _, r := range ascii {
		switch {
		case r == ' ' || r == '_':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewMemberID derives an id for name that is not yet taken.
// Ties get a numeric suffix: "ben", "ben1", "ben2", ...
func NewMemberID(name string, taken func(id string) bool) string {
	base := NormalizeName(name)
	if base == "" {
		base = "member"
	}
	if !taken(base) {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// FindMember returns the member with id.
func FindMember(members []Member, id string) (Member, bool) {
	for _, m := range members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}
