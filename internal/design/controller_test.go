package design_test

import (
	"testing"

	"wordspark-server/internal/design"
	"wordspark-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSelectNextEntity_Priority(t *testing.T) {
	c := design.NewController(1, zap.NewNop())

	meta := &models.EntityMetadata{
		Characters: models.EntityGroup{
			Named:   []string{"Luna"},
			Unnamed: []string{"a young explorer"},
		},
		Locations: models.EntityGroup{
			Named:   []string{"Crystal Cove"},
			Unnamed: []string{"a dark cave"},
		},
	}

	t.Run("unnamed characters come first", func(t *testing.T) {
		sel := c.SelectNextEntity(meta, nil)
		require.NotNil(t, sel)
		assert.Equal(t, models.EntityCharacter, sel.EntityType)
		assert.Equal(t, "a young explorer", sel.Descriptor)
		assert.False(t, sel.IsNamed)
	})

	t.Run("then unnamed locations", func(t *testing.T) {
		sel := c.SelectNextEntity(meta, []string{"a young explorer"})
		require.NotNil(t, sel)
		assert.Equal(t, models.EntityLocation, sel.EntityType)
		assert.Equal(t, "a dark cave", sel.Descriptor)
		assert.False(t, sel.IsNamed)
	})

	t.Run("then named characters", func(t *testing.T) {
		sel := c.SelectNextEntity(meta, []string{"a young explorer", "a dark cave"})
		require.NotNil(t, sel)
		assert.Equal(t, models.EntityCharacter, sel.EntityType)
		assert.Equal(t, "Luna", sel.Descriptor)
		assert.True(t, sel.IsNamed)
	})

	t.Run("nil when everything designed", func(t *testing.T) {
		sel := c.SelectNextEntity(meta, []string{"a young explorer", "a dark cave", "Luna", "Crystal Cove"})
		assert.Nil(t, sel)
	})

	t.Run("designed match is case-insensitive", func(t *testing.T) {
		sel := c.SelectNextEntity(meta, []string{"A YOUNG EXPLORER", "a dark cave", "luna", "crystal cove"})
		assert.Nil(t, sel)
	})

	t.Run("empty metadata", func(t *testing.T) {
		assert.Nil(t, c.SelectNextEntity(&models.EntityMetadata{}, nil))
		assert.Nil(t, c.SelectNextEntity(nil, nil))
	})
}

func TestBegin(t *testing.T) {
	c := design.NewController(1, zap.NewNop())
	c.SeedRand(7)

	t.Run("unnamed entity starts with naming", func(t *testing.T) {
		ds := c.Begin(&design.Selection{
			EntityType: models.EntityCharacter,
			Descriptor: "a young explorer",
		})
		assert.Equal(t, models.AspectNaming, ds.CurrentAspect)
		assert.False(t, ds.IsNamed)
		assert.False(t, ds.Complete)
	})

	t.Run("named entity skips naming", func(t *testing.T) {
		ds := c.Begin(&design.Selection{
			EntityType: models.EntityLocation,
			Descriptor: "Crystal Cove",
			IsNamed:    true,
		})
		assert.NotEqual(t, models.AspectNaming, ds.CurrentAspect)
		assert.Contains(t, models.AspectsFor(models.EntityLocation), ds.CurrentAspect)
	})
}

func TestHandleName(t *testing.T) {
	c := design.NewController(1, zap.NewNop())
	c.SeedRand(7)

	ds := c.Begin(&design.Selection{
		EntityType: models.EntityCharacter,
		Descriptor: "a young explorer",
	})

	c.HandleName(ds, "  Poppy  ")
	assert.Equal(t, "Poppy", ds.EntityDescriptor)
	assert.True(t, ds.IsNamed)
	assert.NotEqual(t, models.AspectNaming, ds.CurrentAspect)
	assert.Contains(t, models.AspectsFor(models.EntityCharacter), ds.CurrentAspect)
}

func TestHandleDescription_CompletesWithinBudget(t *testing.T) {
	c := design.NewController(1, zap.NewNop())
	c.SeedRand(7)

	ds := c.Begin(&design.Selection{
		EntityType: models.EntityCharacter,
		Descriptor: "a young explorer",
	})
	c.HandleName(ds, "Poppy")

	c.HandleDescription(ds)
	assert.True(t, ds.Complete, "one answered aspect satisfies the default budget")
}

func TestHandleDescription_NoAspectRepeats(t *testing.T) {
	// A budget larger than the aspect list forces the flow through every
	// aspect; it must terminate without repeating any.
	c := design.NewController(10, zap.NewNop())
	c.SeedRand(42)

	ds := c.Begin(&design.Selection{
		EntityType: models.EntityLocation,
		Descriptor: "Crystal Cove",
		IsNamed:    true,
	})

	seen := map[models.Aspect]int{}
	for turns := 0; !ds.Complete; turns++ {
		require.Less(t, turns, 20, "design flow must terminate")
		seen[ds.CurrentAspect]++
		c.HandleDescription(ds)
	}

	for aspect, count := range seen {
		assert.Equal(t, 1, count, "aspect %s repeated", aspect)
	}
	assert.Len(t, seen, len(models.AspectsFor(models.EntityLocation)))
}

func TestAspectBudgetClamped(t *testing.T) {
	c := design.NewController(0, zap.NewNop())
	c.SeedRand(7)

	ds := c.Begin(&design.Selection{
		EntityType: models.EntityCharacter,
		Descriptor: "Max",
		IsNamed:    true,
	})
	c.HandleDescription(ds)
	assert.True(t, ds.Complete)
}
