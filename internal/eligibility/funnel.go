// Package eligibility decides which competition categories a participant
// may enroll in for an event. The decision is a pipeline of pure filters
// followed by a type, name, category funnel.
package eligibility

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"jogosescolares/internal/util"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAthlete    Kind = "athlete"
	KindTechnician Kind = "technician"
)

const GenderMixed = "misto"

type Participant struct {
	Kind        Kind
	Sex         string
	DateOfBirth time.Time
}

type Modality struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Type          string                `json:"type"`
	Gender        string                `json:"gender"`
	MinAge        int                   `json:"min_age"`
	MaxAge        int                   `json:"max_age"`
	EventCategory util.Optional[string] `json:"event_category"`
}

// Age counts whole years between dob and now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Associated restricts the catalog to the event's modalities. An empty
// association leaves the whole catalog available.
func Associated(catalog []Modality, associated []uuid.UUID) []Modality {
	if len(associated) == 0 {
		return slices.Clone(catalog)
	}
	out := make([]Modality, 0, len(associated))
	for _, m := range catalog {
		if slices.Contains(associated, m.ID) {
			out = append(out, m)
		}
	}
	return out
}

func ByGender(modalities []Modality, sex string) []Modality {
	out := make([]Modality, 0, len(modalities))
	for _, m := range modalities {
		if strings.EqualFold(m.Gender, GenderMixed) || strings.EqualFold(m.Gender, sex) {
			out = append(out, m)
		}
	}
	return out
}

// ByAge keeps modalities whose inclusive age band contains age. Technicians
// are not age banded and pass through unchanged.
func ByAge(modalities []Modality, kind Kind, age int) []Modality {
	if kind == KindTechnician {
		return slices.Clone(modalities)
	}
	out := make([]Modality, 0, len(modalities))
	for _, m := range modalities {
		if age >= m.MinAge && age <= m.MaxAge {
			out = append(out, m)
		}
	}
	return out
}

// Filter runs the association, gender and age stages in order.
func Filter(catalog []Modality, associated []uuid.UUID, p Participant, now time.Time) []Modality {
	eligible := Associated(catalog, associated)
	eligible = ByGender(eligible, p.Sex)
	return ByAge(eligible, p.Kind, Age(p.DateOfBirth, now))
}

type Category struct {
	Modality
	Label string `json:"label"`
}

// Label names a concrete category by its event category or its age band.
func Label(m Modality) string {
	if m.EventCategory.IsSet && strings.TrimSpace(m.EventCategory.Val) != "" {
		return m.EventCategory.Val
	}
	return fmt.Sprintf("%d-%d anos", m.MinAge, m.MaxAge)
}

// Funnel narrows an eligible set by type, then name, then concrete category.
type Funnel struct {
	eligible []Modality
}

func NewFunnel(eligible []Modality) Funnel {
	return Funnel{eligible: eligible}
}

func (f Funnel) Eligible() []Modality {
	return slices.Clone(f.eligible)
}

func (f Funnel) Empty() bool {
	return len(f.eligible) == 0
}

// Types lists distinct types in order of first appearance.
func (f Funnel) Types() []string {
	var types []string
	for _, m := range f.eligible {
		if !slices.Contains(types, m.Type) {
			types = append(types, m.Type)
		}
	}
	return types
}

func (f Funnel) Names(typ string) []string {
	var names []string
	for _, m := range f.eligible {
		if m.Type == typ && !slices.Contains(names, m.Name) {
			names = append(names, m.Name)
		}
	}
	return names
}

func (f Funnel) Categories(typ, name string) []Category {
	var categories []Category
	for _, m := range f.eligible {
		if m.Type == typ && m.Name == name {
			categories = append(categories, Category{Modality: m, Label: Label(m)})
		}
	}
	return categories
}

// AutoSelect returns the only category for type and name, if there is
// exactly one.
func (f Funnel) AutoSelect(typ, name string) (Category, bool) {
	categories := f.Categories(typ, name)
	if len(categories) != 1 {
		return Category{}, false
	}
	return categories[0], true
}

// Allows reports whether modalityID survived the filters.
func (f Funnel) Allows(modalityID uuid.UUID) bool {
	return slices.ContainsFunc(f.eligible, func(m Modality) bool { return m.ID == modalityID })
}
