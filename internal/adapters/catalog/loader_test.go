package catalog_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/rts-production/internal/adapters/catalog"
	domainCatalog "github.com/andrescamacho/rts-production/internal/domain/catalog"
)

func TestLoadFile_ReadsUnitsInOrder(t *testing.T) {
	// Act
	c, err := catalog.LoadFile(filepath.Join("testdata", "units.yaml"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"drone", "scout"}, c.UnitTypes())
	scout, ok := c.Lookup("scout")
	require.True(t, ok)
	assert.Equal(t, 40.0, scout.REECost())
	assert.Equal(t, 3.0, scout.PowerCost())
	assert.Equal(t, 2.0, scout.ProductionTime())
	assert.Equal(t, domainCatalog.FactoryTypeSupport, scout.ProducedBy())
	assert.Equal(t, []string{"drone"}, c.ProducedBy(domainCatalog.FactoryTypeCombat))
}

func TestParse_RejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty document", ""},
		{"no units", "units: []"},
		{"unknown field", "units:\n  - type: drone\n    cost: 5\n"},
		{"unknown factory", "units:\n  - {type: drone, ree: 1, power: 1, production_time: 1, produced_by: NAVAL}\n"},
		{"zero build time", "units:\n  - {type: drone, ree: 1, power: 1, production_time: 0, produced_by: COMBAT}\n"},
		{"duplicate type", "units:\n  - {type: drone, ree: 1, power: 1, production_time: 1, produced_by: COMBAT}\n  - {type: drone, ree: 2, power: 1, production_time: 1, produced_by: COMBAT}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestEncode_OutputLoadsBackToSameTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, catalog.Encode(&buf, domainCatalog.Default()))

	c, err := catalog.Parse(buf.Bytes())

	require.NoError(t, err)
	assert.Equal(t, domainCatalog.Default().Costs(), c.Costs())
}

func TestLoadFileOrDefault_EmptyPathUsesBuiltIn(t *testing.T) {
	c, err := catalog.LoadFileOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, domainCatalog.Default().Len(), c.Len())

	_, err = catalog.LoadFileOrDefault(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_ShippedTableMatchesBuiltIn(t *testing.T) {
	c, err := catalog.LoadFile(filepath.Join("..", "..", "..", "configs", "units.yaml"))

	require.NoError(t, err)
	assert.Equal(t, domainCatalog.Default().Costs(), c.Costs())
}
