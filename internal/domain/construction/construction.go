package construction

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/events"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// Placement and build defaults
const (
	DefaultMinFactoryDistance     = 100.0
	DefaultMaxFactoriesPerFaction = 4
	DefaultBaseBuildTime          = 30.0
	DefaultBuilderBonus           = 0.25
)

// Config tunes placement rules and build speed
type Config struct {
	MinFactoryDistance     float64
	MaxFactoriesPerFaction int
	BaseBuildTime          float64 // seconds with a single builder
	BuilderBonus           float64 // extra speed per additional builder
}

// DefaultConfig returns the standard placement rules
func DefaultConfig() Config {
	return Config{
		MinFactoryDistance:     DefaultMinFactoryDistance,
		MaxFactoriesPerFaction: DefaultMaxFactoriesPerFaction,
		BaseBuildTime:          DefaultBaseBuildTime,
		BuilderBonus:           DefaultBuilderBonus,
	}
}

// Option configures FactoryConstruction
type Option func(*FactoryConstruction)

// WithPublisher routes construction events to p
func WithPublisher(p events.Publisher) Option {
	return func(c *FactoryConstruction) { c.publisher = events.OrNop(p) }
}

// WithLogger sets the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *FactoryConstruction) {
		c.logger = l.With().Str("component", "construction").Logger()
	}
}

// WithClock stamps site lifecycles with clock
func WithClock(clock shared.Clock) Option {
	return func(c *FactoryConstruction) { c.clock = clock }
}

// existingFactory is a finalized or pre-registered factory occupying a slot
type existingFactory struct {
	factoryID int64
	position  shared.Vector3
	factionID shared.FactionID
}

// FactoryConstruction validates placement of new factories and drives
// multi-builder buildout. A site counts against cap and spacing from the
// moment it starts; its position joins the existing-factory list only once
// FinalizeConstruction is called.
type FactoryConstruction struct {
	cfg       Config
	oracle    DistrictOracle
	publisher events.Publisher
	logger    zerolog.Logger
	clock     shared.Clock

	sites         map[SiteID]*ConstructionSite
	siteOrder     []SiteID
	existing      []existingFactory
	factionCounts map[shared.FactionID]int
	nextSiteID    SiteID
}

// NewFactoryConstruction creates an empty construction manager. A nil oracle
// skips the district ownership rule.
func NewFactoryConstruction(cfg Config, oracle DistrictOracle, opts ...Option) *FactoryConstruction {
	c := &FactoryConstruction{
		cfg:           cfg,
		oracle:        oracle,
		publisher:     events.NopPublisher{},
		logger:        zerolog.Nop(),
		clock:         shared.NewRealClock(),
		sites:         make(map[SiteID]*ConstructionSite),
		factionCounts: make(map[shared.FactionID]int),
		nextSiteID:    1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FactoryConstruction) Config() Config { return c.cfg }

// FactoryCount is the number of finalized factories a faction owns
func (c *FactoryConstruction) FactoryCount(factionID shared.FactionID) int {
	return c.factionCounts[factionID]
}

// Site returns a tracked site
func (c *FactoryConstruction) Site(id SiteID) (*ConstructionSite, bool) {
	site, ok := c.sites[id]
	return site, ok
}

// Sites returns tracked sites in creation order
func (c *FactoryConstruction) Sites() []*ConstructionSite {
	out := make([]*ConstructionSite, 0, len(c.siteOrder))
	for _, id := range c.siteOrder {
		out = append(out, c.sites[id])
	}
	return out
}

// ActiveSites returns sites that still occupy a slot
func (c *FactoryConstruction) ActiveSites() []*ConstructionSite {
	out := make([]*ConstructionSite, 0, len(c.siteOrder))
	for _, site := range c.Sites() {
		if site.occupiesSlot() {
			out = append(out, site)
		}
	}
	return out
}

// ExistingFactoryPositions lists positions used for spacing checks
func (c *FactoryConstruction) ExistingFactoryPositions() []shared.Vector3 {
	out := make([]shared.Vector3, 0, len(c.existing))
	for _, f := range c.existing {
		out = append(out, f.position)
	}
	return out
}

// IsValidPlacement checks district ownership, the per-faction cap and spacing,
// in that order, and reports only the first violated rule.
func (c *FactoryConstruction) IsValidPlacement(position shared.Vector3, factionID shared.FactionID, districtID string) (bool, string) {
	if c.oracle != nil {
		owner, ok := c.oracle.DistrictOwner(districtID)
		if !ok || !owner.Equals(factionID) {
			return false, fmt.Sprintf("District %q is not controlled by faction %s", districtID, factionID)
		}
	}

	occupied := c.factionCounts[factionID]
	for _, site := range c.ActiveSites() {
		if site.factionID.Equals(factionID) {
			occupied++
		}
	}
	if occupied >= c.cfg.MaxFactoriesPerFaction {
		return false, fmt.Sprintf("Maximum factories reached for faction %s (%d/%d)",
			factionID, occupied, c.cfg.MaxFactoriesPerFaction)
	}

	if _, dist, ok := shared.FindNearest(position, c.ExistingFactoryPositions()); ok && dist < c.cfg.MinFactoryDistance {
		return false, fmt.Sprintf("Too close to existing factory (%.1f < %.1f)", dist, c.cfg.MinFactoryDistance)
	}
	sitePositions := make([]shared.Vector3, 0, len(c.siteOrder))
	for _, site := range c.ActiveSites() {
		sitePositions = append(sitePositions, site.position)
	}
	if _, dist, ok := shared.FindNearest(position, sitePositions); ok && dist < c.cfg.MinFactoryDistance {
		return false, fmt.Sprintf("Too close to construction site (%.1f < %.1f)", dist, c.cfg.MinFactoryDistance)
	}
	return true, ""
}

// StartConstruction opens a site after placement validation
func (c *FactoryConstruction) StartConstruction(position shared.Vector3, factionID shared.FactionID, districtID string, factoryType catalog.FactoryType) (*ConstructionSite, error) {
	if !factoryType.IsValid() {
		return nil, shared.NewValidationError("factory_type", fmt.Sprintf("unknown factory type %q", factoryType))
	}
	if ok, reason := c.IsValidPlacement(position, factionID, districtID); !ok {
		c.logger.Warn().
			Int("faction_id", factionID.Value()).
			Str("district_id", districtID).
			Str("reason", reason).
			Msg("Construction placement rejected")
		return nil, &ErrInvalidPlacement{Reason: reason}
	}

	site := newConstructionSite(c.nextSiteID, position, factionID, districtID, factoryType, c.clock)
	c.nextSiteID++
	c.sites[site.id] = site
	c.siteOrder = append(c.siteOrder, site.id)

	c.logger.Info().
		Int64("site_id", int64(site.id)).
		Int("faction_id", factionID.Value()).
		Str("factory_type", string(factoryType)).
		Msg("Construction started")
	c.publish(events.EventConstructionStarted, site, 0)
	return site, nil
}

// AddBuilder attaches a builder to a running site; re-adding is a no-op
func (c *FactoryConstruction) AddBuilder(siteID SiteID, builderID int64) error {
	site, err := c.runningSite(siteID, "add builder to")
	if err != nil {
		return err
	}
	site.builders[builderID] = struct{}{}
	return nil
}

// RemoveBuilder detaches a builder. Removing the last one freezes progress.
func (c *FactoryConstruction) RemoveBuilder(siteID SiteID, builderID int64) error {
	site, ok := c.sites[siteID]
	if !ok {
		return &ErrSiteNotFound{SiteID: siteID}
	}
	delete(site.builders, builderID)
	return nil
}

// CancelConstruction marks a site cancelled, freeing its cap and spacing slot.
// The site stays in the registry with status STOPPED.
func (c *FactoryConstruction) CancelConstruction(siteID SiteID) error {
	site, err := c.runningSite(siteID, "cancel")
	if err != nil {
		return err
	}
	_ = site.lifecycle.Stop()
	site.builders = make(map[int64]struct{})

	c.logger.Info().Int64("site_id", int64(siteID)).Msg("Construction cancelled")
	c.publish(events.EventConstructionCancelled, site, site.progress)
	return nil
}

// Update advances every running site and returns those that reached 100% this call
func (c *FactoryConstruction) Update(delta float64) []*ConstructionSite {
	if delta <= 0 || c.cfg.BaseBuildTime <= 0 {
		return nil
	}
	var completed []*ConstructionSite
	for _, site := range c.Sites() {
		if !site.lifecycle.IsRunning() {
			continue
		}
		speed := site.BuildSpeed(c.cfg.BuilderBonus)
		if speed == 0 {
			continue
		}
		before := site.progress
		site.progress += delta * speed / c.cfg.BaseBuildTime
		if site.progress >= 1.0-1e-9 {
			site.progress = 1.0
		}
		for _, mark := range []float64{0.25, 0.5, 0.75} {
			if before < mark && site.progress >= mark {
				c.publish(events.EventConstructionProgress, site, mark)
			}
		}
		if site.progress >= 1.0 {
			_ = site.lifecycle.Complete()
			c.logger.Info().
				Int64("site_id", int64(site.id)).
				Int("faction_id", site.factionID.Value()).
				Msg("Construction complete")
			c.publish(events.EventConstructionCompleted, site, 1.0)
			completed = append(completed, site)
		}
	}
	return completed
}

// FinalizeConstruction folds a completed site into the existing factory list
// under the id of the factory built there.
func (c *FactoryConstruction) FinalizeConstruction(siteID SiteID, factoryID int64) error {
	site, ok := c.sites[siteID]
	if !ok {
		return &ErrSiteNotFound{SiteID: siteID}
	}
	if !site.IsComplete() || site.finalized || site.abandoned {
		return &ErrSiteState{SiteID: siteID, Operation: "finalize", Status: string(site.Status())}
	}
	site.finalized = true
	c.removeSite(siteID)
	c.RegisterExistingFactory(factoryID, site.position, site.factionID)
	return nil
}

// AbandonSite releases the slot of a completed site whose factory could not be
// built. The site stays in the registry and is never finalized.
func (c *FactoryConstruction) AbandonSite(siteID SiteID, reason string) error {
	site, ok := c.sites[siteID]
	if !ok {
		return &ErrSiteNotFound{SiteID: siteID}
	}
	if !site.IsComplete() || site.finalized || site.abandoned {
		return &ErrSiteState{SiteID: siteID, Operation: "abandon", Status: string(site.Status())}
	}
	site.abandoned = true
	site.builders = make(map[int64]struct{})

	c.logger.Warn().
		Int64("site_id", int64(siteID)).
		Int("faction_id", site.factionID.Value()).
		Str("reason", reason).
		Msg("Completed site abandoned")
	c.publish(events.EventConstructionCancelled, site, site.progress)
	return nil
}

// RegisterExistingFactory records a factory that was placed without a site
func (c *FactoryConstruction) RegisterExistingFactory(factoryID int64, position shared.Vector3, factionID shared.FactionID) {
	c.existing = append(c.existing, existingFactory{factoryID: factoryID, position: position, factionID: factionID})
	c.factionCounts[factionID]++
}

// UnregisterFactory frees the slot of a destroyed factory; unknown ids return false
func (c *FactoryConstruction) UnregisterFactory(factoryID int64) bool {
	for i, f := range c.existing {
		if f.factoryID != factoryID {
			continue
		}
		c.existing = append(c.existing[:i], c.existing[i+1:]...)
		c.factionCounts[f.factionID]--
		if c.factionCounts[f.factionID] <= 0 {
			delete(c.factionCounts, f.factionID)
		}
		return true
	}
	return false
}

func (c *FactoryConstruction) runningSite(siteID SiteID, operation string) (*ConstructionSite, error) {
	site, ok := c.sites[siteID]
	if !ok {
		return nil, &ErrSiteNotFound{SiteID: siteID}
	}
	if !site.lifecycle.IsRunning() {
		return nil, &ErrSiteState{SiteID: siteID, Operation: operation, Status: string(site.Status())}
	}
	return site, nil
}

func (c *FactoryConstruction) removeSite(siteID SiteID) {
	delete(c.sites, siteID)
	for i, id := range c.siteOrder {
		if id == siteID {
			c.siteOrder = append(c.siteOrder[:i], c.siteOrder[i+1:]...)
			return
		}
	}
}

func (c *FactoryConstruction) publish(eventType events.EventType, site *ConstructionSite, value float64) {
	c.publisher.Publish(events.Event{
		Type:      eventType,
		FactionID: site.factionID,
		SiteID:    int64(site.id),
		Position:  site.position,
		Value:     value,
		Reason:    string(site.factoryType),
	})
}

// ToMap exports sites, existing factories and counters
func (c *FactoryConstruction) ToMap() map[string]any {
	sites := make([]map[string]any, 0, len(c.siteOrder))
	for _, site := range c.Sites() {
		sites = append(sites, site.toMap())
	}
	existing := make([]map[string]any, 0, len(c.existing))
	for _, f := range c.existing {
		existing = append(existing, map[string]any{
			"factory_id": f.factoryID,
			"position":   f.position.ToMap(),
			"faction_id": f.factionID.Value(),
		})
	}
	return map[string]any{
		"min_factory_distance":      c.cfg.MinFactoryDistance,
		"max_factories_per_faction": c.cfg.MaxFactoriesPerFaction,
		"base_build_time":           c.cfg.BaseBuildTime,
		"builder_bonus":             c.cfg.BuilderBonus,
		"next_site_id":              int64(c.nextSiteID),
		"sites":                     sites,
		"existing_factories":        existing,
	}
}

// FactoryConstructionFromMap reconstructs state exported by ToMap. Faction
// counts are rebuilt from the existing factory list.
func FactoryConstructionFromMap(m map[string]any, oracle DistrictOracle, opts ...Option) (*FactoryConstruction, error) {
	r := shared.NewStateReader(m)
	cfg := Config{
		MinFactoryDistance:     r.Float("min_factory_distance"),
		MaxFactoriesPerFaction: r.Int("max_factories_per_faction"),
		BaseBuildTime:          r.Float("base_build_time"),
		BuilderBonus:           r.Float("builder_bonus"),
	}
	nextSiteID := SiteID(r.Int64("next_site_id"))
	siteMaps := r.Maps("sites")
	existingMaps := r.Maps("existing_factories")
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("construction state: %w", err)
	}

	c := NewFactoryConstruction(cfg, oracle, opts...)
	c.nextSiteID = nextSiteID
	for _, sm := range siteMaps {
		site, err := siteFromMap(sm, c.clock)
		if err != nil {
			return nil, err
		}
		c.sites[site.id] = site
		c.siteOrder = append(c.siteOrder, site.id)
	}
	for _, em := range existingMaps {
		er := shared.NewStateReader(em)
		factoryID := er.Int64("factory_id")
		positionMap := er.Map("position")
		factionID := er.Int("faction_id")
		if err := er.Err(); err != nil {
			return nil, fmt.Errorf("existing factory state: %w", err)
		}
		position, err := shared.Vector3FromMap(positionMap)
		if err != nil {
			return nil, err
		}
		faction, err := shared.NewFactionID(factionID)
		if err != nil {
			return nil, err
		}
		c.RegisterExistingFactory(factoryID, position, faction)
	}
	return c, nil
}
