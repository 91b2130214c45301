package persona

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryListIsStableAndUnique(t *testing.T) {
	seed := Seed()
	reg := NewRegistry(append(seed, seed[0]))

	first := reg.List()
	second := reg.List()
	require.Len(t, first, len(seed))
	assert.Equal(t, first, second)

	seen := make(map[string]bool)
	for _, p := range first {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
	assert.Equal(t, []string{"technical_expert", "creative_partner", "business_advisor"}, reg.IDs())
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry(Seed())

	p, err := reg.Get("business_advisor")
	require.NoError(t, err)
	assert.Equal(t, BusinessAdvisor, p.Kind)
	assert.True(t, p.HasSpecialty("pricing"))

	_, err = reg.Get("pirate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistryReturnsCopies(t *testing.T) {
	reg := NewRegistry(Seed())

	p, err := reg.Get("technical_expert")
	require.NoError(t, err)
	p.Specialties[0] = "mutated"

	again, err := reg.Get("technical_expert")
	require.NoError(t, err)
	assert.Equal(t, "memory", again.Specialties[0])
}

func TestKindString(t *testing.T) {
	for _, p := range Seed() {
		assert.Equal(t, p.ID, p.Kind.String())
	}
	assert.Equal(t, "unknown", Kind(0).String())
}
