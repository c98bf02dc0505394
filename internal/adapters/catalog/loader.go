package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	domainCatalog "github.com/andrescamacho/rts-production/internal/domain/catalog"
)

// File is the on-disk layout of a unit cost table
type File struct {
	Units []UnitEntry `yaml:"units"`
}

// UnitEntry is one row of the cost table
type UnitEntry struct {
	Type           string  `yaml:"type"`
	REE            float64 `yaml:"ree"`
	Power          float64 `yaml:"power"`
	ProductionTime float64 `yaml:"production_time"`
	ProducedBy     string  `yaml:"produced_by"`
}

// LoadFile reads a YAML cost table. Unknown fields are rejected so typos surface
// at startup instead of as silently free units.
func LoadFile(path string) (*domainCatalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// LoadFileOrDefault returns the built-in table when path is empty
func LoadFileOrDefault(path string) (*domainCatalog.Catalog, error) {
	if path == "" {
		return domainCatalog.Default(), nil
	}
	return LoadFile(path)
}

// Parse decodes a YAML cost table
func Parse(data []byte) (*domainCatalog.Catalog, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Units) == 0 {
		return nil, fmt.Errorf("units list is required and must be non-empty")
	}

	costs := make([]domainCatalog.UnitCost, 0, len(file.Units))
	for i, u := range file.Units {
		factoryType, err := domainCatalog.ParseFactoryType(u.ProducedBy)
		if err != nil {
			return nil, fmt.Errorf("units[%d] (%s): %w", i, u.Type, err)
		}
		cost, err := domainCatalog.NewUnitCost(u.Type, u.REE, u.Power, u.ProductionTime, factoryType)
		if err != nil {
			return nil, fmt.Errorf("units[%d]: %w", i, err)
		}
		costs = append(costs, cost)
	}
	return domainCatalog.New(costs...)
}

// Encode writes a catalog in the layout LoadFile reads
func Encode(w io.Writer, c *domainCatalog.Catalog) error {
	file := File{Units: make([]UnitEntry, 0, c.Len())}
	for _, cost := range c.Costs() {
		file.Units = append(file.Units, UnitEntry{
			Type:           cost.UnitType(),
			REE:            cost.REECost(),
			Power:          cost.PowerCost(),
			ProductionTime: cost.ProductionTime(),
			ProducedBy:     cost.ProducedBy().String(),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return err
	}
	return enc.Close()
}
