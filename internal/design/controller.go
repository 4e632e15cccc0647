package design

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"wordspark-server/internal/models"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

// Selection identifies the next entity to design.
type Selection struct {
	EntityType models.EntityType
	Descriptor string
	IsNamed    bool
}

// Controller drives the name-and-describe sub-flow for detected story
// entities. It owns DesignState transitions; the orchestrator owns when the
// sub-flow is entered and left.
type Controller struct {
	aspectBudget int
	logger       *zap.Logger

	rngLock sync.Mutex
	rng     *rand.Rand
}

// NewController creates a design Controller. aspectBudget is the number of
// non-naming aspects asked per entity before the story resumes; values
// below 1 are clamped to 1.
func NewController(aspectBudget int, logger *zap.Logger) *Controller {
	if logger == nil {
		log.Fatal().Msg("Logger is nil for design Controller")
	}
	if aspectBudget < 1 {
		aspectBudget = 1
	}
	return &Controller{
		aspectBudget: aspectBudget,
		logger:       logger.Named("EntityDesignController"),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SeedRand pins the internal RNG. Deterministic override hook for tests.
func (c *Controller) SeedRand(seed int64) {
	c.rngLock.Lock()
	c.rng = rand.New(rand.NewSource(seed))
	c.rngLock.Unlock()
}

// SelectNextEntity picks the next undesigned entity from parsed metadata,
// or nil when every detected entity has been designed. Unnamed entities
// come before named ones: they need both naming and description, so the
// longer flow happens while attention is fresh. Characters come before
// locations within each group.
func (c *Controller) SelectNextEntity(meta *models.EntityMetadata, alreadyDesigned []string) *Selection {
	if meta.IsEmpty() {
		return nil
	}

	designed := func(descriptor string) bool {
		for _, d := range alreadyDesigned {
			if strings.EqualFold(d, descriptor) {
				return true
			}
		}
		return false
	}

	groups := []struct {
		entityType models.EntityType
		names      []string
		isNamed    bool
	}{
		{models.EntityCharacter, meta.Characters.Unnamed, false},
		{models.EntityLocation, meta.Locations.Unnamed, false},
		{models.EntityCharacter, meta.Characters.Named, true},
		{models.EntityLocation, meta.Locations.Named, true},
	}

	for _, g := range groups {
		for _, name := range g.names {
			name = strings.TrimSpace(name)
			if name == "" || designed(name) {
				continue
			}
			return &Selection{
				EntityType: g.entityType,
				Descriptor: name,
				IsNamed:    g.isNamed,
			}
		}
	}
	return nil
}

// Begin starts the design sub-flow for a selected entity. Unnamed entities
// start with the naming step; named entities go straight to a random aspect.
func (c *Controller) Begin(sel *Selection) *models.DesignState {
	ds := &models.DesignState{
		EntityType:       sel.EntityType,
		EntityDescriptor: sel.Descriptor,
		SourceDescriptor: sel.Descriptor,
		IsNamed:          sel.IsNamed,
	}
	if sel.IsNamed {
		ds.CurrentAspect = c.randomAspect(ds)
	} else {
		ds.CurrentAspect = models.AspectNaming
	}
	c.logger.Debug("Design phase entered",
		zap.String("entity", sel.Descriptor),
		zap.String("entityType", string(sel.EntityType)),
		zap.String("aspect", string(ds.CurrentAspect)))
	return ds
}

// HandleName records the child-supplied name and advances to a random
// descriptive aspect. Only valid while CurrentAspect is Naming.
func (c *Controller) HandleName(ds *models.DesignState, name string) {
	name = strings.TrimSpace(name)
	if name != "" {
		ds.EntityDescriptor = name
	}
	ds.IsNamed = true
	ds.CurrentAspect = c.randomAspect(ds)
}

// HandleDescription records the answered aspect and decides whether the
// entity is complete. The flow treats the configured aspect budget (one by
// default) as sufficient before the story resumes, keeping cognitive load
// low for the target age group.
func (c *Controller) HandleDescription(ds *models.DesignState) {
	ds.AspectHistory = append(ds.AspectHistory, ds.CurrentAspect)

	answered := 0
	for _, a := range ds.AspectHistory {
		if a != models.AspectNaming {
			answered++
		}
	}

	if answered >= c.aspectBudget {
		ds.Complete = true
		return
	}

	next, ok := c.nextAspect(ds)
	if !ok {
		ds.Complete = true
		return
	}
	ds.CurrentAspect = next
}

// randomAspect picks a uniformly random aspect valid for the entity type,
// excluding aspects already in the history. Random rather than fixed order:
// predictable question patterns across sessions get stale fast.
func (c *Controller) randomAspect(ds *models.DesignState) models.Aspect {
	next, ok := c.nextAspect(ds)
	if !ok {
		// Every aspect used; fall back to the first valid one rather than
		// blocking the flow.
		return models.AspectsFor(ds.EntityType)[0]
	}
	return next
}

func (c *Controller) nextAspect(ds *models.DesignState) (models.Aspect, bool) {
	valid := models.AspectsFor(ds.EntityType)
	remaining := make([]models.Aspect, 0, len(valid))
	for _, a := range valid {
		if !ds.HasAspect(a) {
			remaining = append(remaining, a)
		}
	}
	if len(remaining) == 0 {
		return "", false
	}
	c.rngLock.Lock()
	idx := c.rng.Intn(len(remaining))
	c.rngLock.Unlock()
	return remaining[idx], true
}
