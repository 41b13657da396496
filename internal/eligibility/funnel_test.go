package eligibility

import (
	"testing"
	"time"

	"jogosescolares/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func modality(name, typ, gender string, minAge, maxAge int) Modality {
	return Modality{ID: uuid.New(), Name: name, Type: typ, Gender: gender, MinAge: minAge, MaxAge: maxAge}
}

func TestAge(t *testing.T) {
	tests := []struct {
		name string
		dob  time.Time
		want int
	}{
		{name: "birthday today", dob: time.Date(2014, 6, 15, 0, 0, 0, 0, time.UTC), want: 11},
		{name: "birthday tomorrow", dob: time.Date(2014, 6, 16, 0, 0, 0, 0, time.UTC), want: 10},
		{name: "birthday last month", dob: time.Date(2014, 5, 20, 0, 0, 0, 0, time.UTC), want: 11},
		{name: "born in the future", dob: now.AddDate(1, 0, 0), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Age(tt.dob, now))
		})
	}
}

func TestFilter_Athlete(t *testing.T) {
	athlete := Participant{Kind: KindAthlete, Sex: "Feminino", DateOfBirth: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)}

	mixed := modality("Atletismo", "individual", "misto", 10, 12)
	male := modality("Futsal", "coletiva", "Masculino", 10, 12)
	older := modality("Vôlei", "coletiva", "misto", 13, 14)
	female := modality("Handebol", "coletiva", "FEMININO", 11, 11)

	eligible := Filter([]Modality{mixed, male, older, female}, nil, athlete, now)

	assert.Equal(t, []Modality{mixed, female}, eligible)
}

func TestFilter_TechnicianExemptFromAge(t *testing.T) {
	technician := Participant{Kind: KindTechnician, Sex: "Feminino", DateOfBirth: time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)}

	banded := modality("Atletismo", "individual", "misto", 10, 12)
	male := modality("Futsal", "coletiva", "masculino", 10, 12)

	eligible := Filter([]Modality{banded, male}, nil, technician, now)

	assert.Equal(t, []Modality{banded}, eligible)
}

func TestAssociated(t *testing.T) {
	a := modality("Xadrez", "individual", "misto", 10, 17)
	b := modality("Judô", "individual", "misto", 10, 17)

	t.Run("empty association keeps catalog", func(t *testing.T) {
		assert.Equal(t, []Modality{a, b}, Associated([]Modality{a, b}, nil))
	})
	t.Run("association restricts catalog", func(t *testing.T) {
		assert.Equal(t, []Modality{b}, Associated([]Modality{a, b}, []uuid.UUID{b.ID}))
	})
	t.Run("unknown ids match nothing", func(t *testing.T) {
		assert.Empty(t, Associated([]Modality{a, b}, []uuid.UUID{uuid.New()}))
	})
}

func TestFunnel(t *testing.T) {
	atletismoMirim := modality("Atletismo", "individual", "misto", 10, 12)
	atletismoInfantil := modality("Atletismo", "individual", "misto", 12, 14)
	xadrez := modality("Xadrez", "individual", "misto", 10, 17)
	xadrez.EventCategory = util.Some("Sub-17")
	volei := modality("Vôlei", "coletiva", "misto", 12, 14)

	f := NewFunnel([]Modality{atletismoMirim, volei, atletismoInfantil, xadrez})

	assert.Equal(t, []string{"individual", "coletiva"}, f.Types())
	assert.Equal(t, []string{"Atletismo", "Xadrez"}, f.Names("individual"))
	assert.Equal(t, []string{"Vôlei"}, f.Names("coletiva"))
	assert.Empty(t, f.Names("equipe"))

	categories := f.Categories("individual", "Atletismo")
	require.Len(t, categories, 2)
	assert.Equal(t, "10-12 anos", categories[0].Label)
	assert.Equal(t, "12-14 anos", categories[1].Label)

	// A name from the other type never leaks through.
	assert.Empty(t, f.Categories("coletiva", "Atletismo"))

	_, ok := f.AutoSelect("individual", "Atletismo")
	assert.False(t, ok)

	selected, ok := f.AutoSelect("individual", "Xadrez")
	require.True(t, ok)
	assert.Equal(t, xadrez.ID, selected.ID)
	assert.Equal(t, "Sub-17", selected.Label)

	assert.True(t, f.Allows(volei.ID))
	assert.False(t, f.Allows(uuid.New()))
}

func TestFunnel_Empty(t *testing.T) {
	f := NewFunnel(nil)

	assert.True(t, f.Empty())
	assert.Empty(t, f.Types())
	_, ok := f.AutoSelect("individual", "Xadrez")
	assert.False(t, ok)
}

func TestFunnel_MonotonicNarrowing(t *testing.T) {
	catalog := []Modality{
		modality("Atletismo", "individual", "misto", 10, 12),
		modality("Atletismo", "individual", "feminino", 13, 14),
		modality("Futsal", "coletiva", "masculino", 12, 14),
		modality("Basquete", "coletiva", "misto", 12, 14),
	}
	f := NewFunnel(catalog)

	total := 0
	for _, typ := range f.Types() {
		for _, name := range f.Names(typ) {
			categories := f.Categories(typ, name)
			assert.NotEmpty(t, categories)
			for _, c := range categories {
				assert.Equal(t, typ, c.Type)
				assert.Equal(t, name, c.Name)
			}
			total += len(categories)
		}
	}
	assert.Equal(t, len(catalog), total)
}
