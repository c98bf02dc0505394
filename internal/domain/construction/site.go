package construction

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/rts-production/internal/domain/catalog"
	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// SiteID identifies a construction site
type SiteID int64

// ConstructionSite is a factory being built by one or more builders.
// Progress only advances while at least one builder is attached.
type ConstructionSite struct {
	id          SiteID
	position    shared.Vector3
	factionID   shared.FactionID
	districtID  string
	factoryType catalog.FactoryType
	progress    float64
	builders    map[int64]struct{}
	lifecycle   *shared.LifecycleStateMachine
	finalized   bool
	abandoned   bool // completed but no factory could be built
}

func newConstructionSite(id SiteID, position shared.Vector3, factionID shared.FactionID, districtID string, factoryType catalog.FactoryType, clock shared.Clock) *ConstructionSite {
	site := &ConstructionSite{
		id:          id,
		position:    position,
		factionID:   factionID,
		districtID:  districtID,
		factoryType: factoryType,
		builders:    make(map[int64]struct{}),
		lifecycle:   shared.NewLifecycleStateMachine(clock),
	}
	_ = site.lifecycle.Start()
	return site
}

func (s *ConstructionSite) ID() SiteID                       { return s.id }
func (s *ConstructionSite) Position() shared.Vector3         { return s.position }
func (s *ConstructionSite) FactionID() shared.FactionID      { return s.factionID }
func (s *ConstructionSite) DistrictID() string               { return s.districtID }
func (s *ConstructionSite) FactoryType() catalog.FactoryType { return s.factoryType }
func (s *ConstructionSite) Progress() float64                { return s.progress }
func (s *ConstructionSite) Status() shared.LifecycleStatus   { return s.lifecycle.Status() }
func (s *ConstructionSite) IsComplete() bool {
	return s.lifecycle.Status() == shared.LifecycleStatusCompleted
}
func (s *ConstructionSite) IsCancelled() bool {
	return s.lifecycle.Status() == shared.LifecycleStatusStopped
}
func (s *ConstructionSite) IsFinalized() bool { return s.finalized }
func (s *ConstructionSite) IsAbandoned() bool { return s.abandoned }
func (s *ConstructionSite) BuilderCount() int { return len(s.builders) }

// Builders returns attached builder ids in ascending order
func (s *ConstructionSite) Builders() []int64 {
	out := make([]int64, 0, len(s.builders))
	for id := range s.builders {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// occupiesSlot reports whether the site counts toward cap and spacing checks
func (s *ConstructionSite) occupiesSlot() bool {
	return !s.IsCancelled() && !s.finalized && !s.abandoned
}

// BuildSpeed is 1.0 + (builders-1)*bonus, or 0 with no builders
func (s *ConstructionSite) BuildSpeed(builderBonus float64) float64 {
	n := len(s.builders)
	if n == 0 {
		return 0
	}
	return 1.0 + float64(n-1)*builderBonus
}

func (s *ConstructionSite) toMap() map[string]any {
	builders := make([]int, 0, len(s.builders))
	for _, id := range s.Builders() {
		builders = append(builders, int(id))
	}
	return map[string]any{
		"id":           int64(s.id),
		"position":     s.position.ToMap(),
		"faction_id":   s.factionID.Value(),
		"district_id":  s.districtID,
		"factory_type": string(s.factoryType),
		"progress":     s.progress,
		"builders":     builders,
		"lifecycle":    s.lifecycle.ToMap(),
		"finalized":    s.finalized,
		"abandoned":    s.abandoned,
	}
}

func siteFromMap(m map[string]any, clock shared.Clock) (*ConstructionSite, error) {
	r := shared.NewStateReader(m)
	site := &ConstructionSite{
		id:         SiteID(r.Int64("id")),
		districtID: r.String("district_id"),
		progress:   r.Float("progress"),
		finalized:  r.Bool("finalized"),
		builders:   make(map[int64]struct{}),
	}
	positionMap := r.Map("position")
	factionID := r.Int("faction_id")
	typeName := r.String("factory_type")
	builders := r.Ints("builders")
	lifecycleMap := r.Map("lifecycle")
	if r.Has("abandoned") {
		site.abandoned = r.Bool("abandoned")
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("construction site state: %w", err)
	}

	var err error
	if site.position, err = shared.Vector3FromMap(positionMap); err != nil {
		return nil, err
	}
	if site.factionID, err = shared.NewFactionID(factionID); err != nil {
		return nil, err
	}
	if site.factoryType, err = catalog.ParseFactoryType(typeName); err != nil {
		return nil, err
	}
	if site.lifecycle, err = shared.LifecycleFromMap(lifecycleMap, clock); err != nil {
		return nil, err
	}
	for _, b := range builders {
		site.builders[int64(b)] = struct{}{}
	}
	return site, nil
}
