package catalog

import "fmt"

// Catalog is the single authoritative unit cost table shared by factories and the
// cost validator. It is immutable after construction.
type Catalog struct {
	costs map[string]UnitCost
	order []string
}

// New builds a catalog from cost records; duplicate unit types are rejected
func New(costs ...UnitCost) (*Catalog, error) {
	c := &Catalog{
		costs: make(map[string]UnitCost, len(costs)),
		order: make([]string, 0, len(costs)),
	}
	for _, cost := range costs {
		if cost.IsZero() {
			return nil, fmt.Errorf("catalog entry has no unit type")
		}
		if _, exists := c.costs[cost.UnitType()]; exists {
			return nil, fmt.Errorf("duplicate unit type in catalog: %s", cost.UnitType())
		}
		c.costs[cost.UnitType()] = cost
		c.order = append(c.order, cost.UnitType())
	}
	return c, nil
}

// Default returns the built-in unit catalog
func Default() *Catalog {
	c, err := New(
		MustNewUnitCost("drone", 50, 5, 3, FactoryTypeCombat),
		MustNewUnitCost("soldier", 75, 5, 4, FactoryTypeCombat),
		MustNewUnitCost("tank", 200, 15, 8, FactoryTypeCombat),
		MustNewUnitCost("artillery", 250, 20, 10, FactoryTypeCombat),
		MustNewUnitCost("harvester", 100, 8, 6, FactoryTypeHarvester),
		MustNewUnitCost("hauler", 120, 10, 7, FactoryTypeHarvester),
		MustNewUnitCost("builder", 80, 6, 5, FactoryTypeSupport),
		MustNewUnitCost("medic", 90, 6, 5, FactoryTypeSupport),
		MustNewUnitCost("scout", 40, 3, 2, FactoryTypeSupport),
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the cost record for a unit type
func (c *Catalog) Lookup(unitType string) (UnitCost, bool) {
	cost, ok := c.costs[unitType]
	return cost, ok
}

// Has reports whether the unit type exists
func (c *Catalog) Has(unitType string) bool {
	_, ok := c.costs[unitType]
	return ok
}

// UnitTypes returns all unit types in declaration order
func (c *Catalog) UnitTypes() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Costs returns all cost records in declaration order
func (c *Catalog) Costs() []UnitCost {
	out := make([]UnitCost, 0, len(c.order))
	for _, unitType := range c.order {
		out = append(out, c.costs[unitType])
	}
	return out
}

// ProducedBy returns the unit types a factory type can build, in declaration order
func (c *Catalog) ProducedBy(factoryType FactoryType) []string {
	out := make([]string, 0)
	for _, unitType := range c.order {
		if c.costs[unitType].ProducedBy() == factoryType {
			out = append(out, unitType)
		}
	}
	return out
}

// Len returns the number of unit types
func (c *Catalog) Len() int {
	return len(c.order)
}
