package construction

import "github.com/andrescamacho/rts-production/internal/domain/shared"

// DistrictOracle answers which faction controls a district
type DistrictOracle interface {
	DistrictOwner(districtID string) (shared.FactionID, bool)
}

// StaticDistricts is a fixed district ownership table
type StaticDistricts map[string]shared.FactionID

// DistrictOwner looks the district up in the table
func (d StaticDistricts) DistrictOwner(districtID string) (shared.FactionID, bool) {
	owner, ok := d[districtID]
	return owner, ok
}
