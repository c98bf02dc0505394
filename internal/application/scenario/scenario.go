package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andrescamacho/rts-production/internal/domain/shared"
)

// DefaultTickDelta is one frame at 20 Hz
const DefaultTickDelta = 0.05

// Scenario is a scripted simulation: starting economies, a list of steps, and
// the state expected once every step has run.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	TickDelta   float64   `yaml:"tick_delta,omitempty"`
	Sandbox     bool      `yaml:"sandbox,omitempty"`
	Factions    []Faction `yaml:"factions"`
	Steps       []Step    `yaml:"steps"`
	Expect      *Expect   `yaml:"expect,omitempty"`
}

// Faction seeds one faction's ledger and cost modifier
type Faction struct {
	ID           int     `yaml:"id"`
	REE          float64 `yaml:"ree"`
	Power        float64 `yaml:"power"`
	CostModifier float64 `yaml:"cost_modifier,omitempty"`
}

// Step holds exactly one action. ExpectError inverts the outcome check.
type Step struct {
	PlaceFactory  *PlaceFactoryStep  `yaml:"place_factory,omitempty"`
	Construct     *ConstructStep     `yaml:"construct,omitempty"`
	AssignBuilder *AssignBuilderStep `yaml:"assign_builder,omitempty"`
	CancelSite    *SiteStep          `yaml:"cancel_site,omitempty"`
	Queue         *QueueStep         `yaml:"queue,omitempty"`
	CancelJob     *CancelJobStep     `yaml:"cancel_job,omitempty"`
	Overclock     *OverclockStep     `yaml:"overclock,omitempty"`
	Upgrade       *FactoryStep       `yaml:"upgrade,omitempty"`
	Damage        *DamageStep        `yaml:"damage,omitempty"`
	Deposit       *DepositStep       `yaml:"deposit,omitempty"`
	SetModifier   *ModifierStep      `yaml:"set_modifier,omitempty"`
	Speed         *SpeedStep         `yaml:"speed,omitempty"`
	Advance       *AdvanceStep       `yaml:"advance,omitempty"`
	ExpectError   bool               `yaml:"expect_error,omitempty"`
}

// Position is written as [x, y, z]
type Position []float64

func (p Position) Vector() shared.Vector3 {
	var v [3]float64
	copy(v[:], p)
	return shared.NewVector3(v[0], v[1], v[2])
}

type PlaceFactoryStep struct {
	As         string   `yaml:"as"`
	Faction    int      `yaml:"faction"`
	Type       string   `yaml:"type"`
	Position   Position `yaml:"position"`
	DistrictID string   `yaml:"district,omitempty"`
}

type ConstructStep struct {
	As         string   `yaml:"as"`
	Faction    int      `yaml:"faction"`
	Type       string   `yaml:"type"`
	Position   Position `yaml:"position"`
	DistrictID string   `yaml:"district,omitempty"`
	Builders   []int64  `yaml:"builders,omitempty"`
}

type AssignBuilderStep struct {
	Site    string `yaml:"site"`
	Builder int64  `yaml:"builder"`
	Remove  bool   `yaml:"remove,omitempty"`
}

type SiteStep struct {
	Site string `yaml:"site"`
}

// QueueStep queues Count units. Factory names a placed factory or a finished site.
type QueueStep struct {
	As           string `yaml:"as,omitempty"`
	Factory      string `yaml:"factory"`
	Unit         string `yaml:"unit"`
	Count        int    `yaml:"count,omitempty"`
	ExpectDenied int    `yaml:"expect_denied,omitempty"`
}

type CancelJobStep struct {
	Job string `yaml:"job"`
}

type OverclockStep struct {
	Factory string  `yaml:"factory"`
	Target  float64 `yaml:"target"`
}

type FactoryStep struct {
	Factory string `yaml:"factory"`
}

type DamageStep struct {
	Factory string  `yaml:"factory"`
	Amount  float64 `yaml:"amount"`
}

type DepositStep struct {
	Faction int     `yaml:"faction"`
	REE     float64 `yaml:"ree"`
	Power   float64 `yaml:"power"`
}

type ModifierStep struct {
	Faction  int     `yaml:"faction"`
	Modifier float64 `yaml:"modifier"`
}

type SpeedStep struct {
	Multiplier float64 `yaml:"multiplier,omitempty"`
	Paused     bool    `yaml:"paused,omitempty"`
}

// AdvanceStep runs Ticks frames, or enough frames to cover Seconds
type AdvanceStep struct {
	Ticks   int     `yaml:"ticks,omitempty"`
	Seconds float64 `yaml:"seconds,omitempty"`
}

// Expect is checked after the last step. Nil fields are not checked.
type Expect struct {
	UnitsProduced  *int                  `yaml:"units_produced,omitempty"`
	UnitsByType    map[string]int        `yaml:"units_by_type,omitempty"`
	Factories      map[int]int           `yaml:"factories,omitempty"`
	Eliminated     []int                 `yaml:"eliminated,omitempty"`
	FailedSpawns   *int                  `yaml:"failed_spawns,omitempty"`
	FailedCommits  *int                  `yaml:"failed_commits,omitempty"`
	REEConsumed    *float64              `yaml:"ree_consumed,omitempty"`
	Balances       map[int]BalanceExpect `yaml:"balances,omitempty"`
	FailedAttempts map[int]int           `yaml:"failed_attempts,omitempty"`
	Queues         map[string]int        `yaml:"queues,omitempty"`
	Overclock      map[string]string     `yaml:"overclock,omitempty"`
	Sites          map[string]SiteExpect `yaml:"sites,omitempty"`
}

// BalanceExpect compares ledger balances within a small tolerance
type BalanceExpect struct {
	REE   *float64 `yaml:"ree,omitempty"`
	Power *float64 `yaml:"power,omitempty"`
}

// SiteExpect checks a construction site by alias
type SiteExpect struct {
	Status   string   `yaml:"status,omitempty"`
	Progress *float64 `yaml:"progress,omitempty"`
}

// Load reads and validates a scenario file. Unknown fields are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a scenario document
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if s.TickDelta == 0 {
		s.TickDelta = DefaultTickDelta
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.TickDelta < 0 {
		return fmt.Errorf("tick_delta must not be negative")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for _, f := range s.Factions {
		if f.ID <= 0 {
			return fmt.Errorf("faction id must be positive, got %d", f.ID)
		}
	}
	for i, step := range s.Steps {
		if n := step.actions(); n != 1 {
			return fmt.Errorf("step %d must hold exactly one action, found %d", i+1, n)
		}
	}
	return nil
}

func (st Step) actions() int {
	n := 0
	for _, set := range []bool{
		st.PlaceFactory != nil, st.Construct != nil, st.AssignBuilder != nil,
		st.CancelSite != nil, st.Queue != nil, st.CancelJob != nil,
		st.Overclock != nil, st.Upgrade != nil, st.Damage != nil,
		st.Deposit != nil, st.SetModifier != nil, st.Speed != nil,
		st.Advance != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
