package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, []string{"Politik", "Olahraga", "Teknologi", "Hiburan", "Ekonomi"}, s.Names())
	assert.Equal(t, 5, s.Len())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New("A", " ")
	assert.Error(t, err)

	_, err = New("A", "B", "A")
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	s, err := Parse(" Sains, Budaya ,Kesehatan")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sains", "Budaya", "Kesehatan"}, s.Names())
	assert.Equal(t, "Sains,Budaya,Kesehatan", s.String())
}

func TestValidate(t *testing.T) {
	s := Default()

	assert.NoError(t, s.Validate("Ekonomi"))
	assert.ErrorIs(t, s.Validate("Sains"), ErrInvalidLabel)
	assert.ErrorIs(t, s.Validate("ekonomi"), ErrInvalidLabel)
	assert.ErrorIs(t, s.Validate(""), ErrInvalidLabel)
}

func TestComplete(t *testing.T) {
	s := Default()

	got := s.Complete(map[string]int{"Teknologi": 3, "Politik": 1, "Sains": 9})
	assert.Equal(t, []Count{
		{Category: "Politik", Count: 1},
		{Category: "Olahraga", Count: 0},
		{Category: "Teknologi", Count: 3},
		{Category: "Hiburan", Count: 0},
		{Category: "Ekonomi", Count: 0},
	}, got)

	empty := s.Complete(nil)
	require.Len(t, empty, 5)
	for _, c := range empty {
		assert.Zero(t, c.Count)
	}
}

func TestNames_IsCopy(t *testing.T) {
	s := Default()
	names := s.Names()
	names[0] = "X"
	assert.Equal(t, "Politik", s.Names()[0])
}
