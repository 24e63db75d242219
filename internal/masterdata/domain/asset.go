package masterdata

import (
	"context"
	"errors"
	"time"
)

// AssetType identifies the kind of meter or sensor installed at a site.
type AssetType string

const (
	AssetACMeter   AssetType = "AC_METER"
	AssetDCMeter   AssetType = "DC_METER"
	AssetGenerator AssetType = "GENERATOR"
	AssetRectifier AssetType = "RECTIFIER"
	AssetFuelLevel AssetType = "FUEL_LEVEL"
)

// Valid reports whether the asset type is a known kind.
func (t AssetType) Valid() bool {
	switch t {
	case AssetACMeter, AssetDCMeter, AssetGenerator, AssetRectifier, AssetFuelLevel:
		return true
	}
	return false
}

// Asset represents a monitored meter or sensor in masterdata.
type Asset struct {
	ID        string
	Name      string
	Type      AssetType
	SiteID    string
	SiteName  string
	Region    string
	Monitored bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks asset invariants.
func (a Asset) Validate() error {
	if a.ID == "" {
		return errors.New("asset: empty id")
	}
	if a.Name == "" {
		return errors.New("asset: empty name")
	}
	if !a.Type.Valid() {
		return errors.New("asset: unknown type")
	}
	if a.SiteID == "" {
		return errors.New("asset: empty site id")
	}
	return nil
}

// categoryAssetTypes restricts rule categories to the asset types that
// produce the readings they check. Categories without an entry apply to
// every asset type.
var categoryAssetTypes = map[string][]AssetType{
	"Fuel":               {AssetFuelLevel},
	"Fuel Sensor":        {AssetFuelLevel},
	"Battery":            {AssetDCMeter, AssetRectifier},
	"Grid":               {AssetACMeter},
	"Grid ACEM":          {AssetACMeter},
	"Generator":          {AssetGenerator, AssetRectifier},
	"Gen ACEM":           {AssetGenerator},
	"Solar":              {AssetDCMeter},
	"Temperature":        {AssetRectifier, AssetGenerator},
	"Temperature Sensor": {AssetRectifier, AssetGenerator},
}

// CategoryApplies reports whether a rule category is relevant for the
// given asset type.
func CategoryApplies(category string, assetType AssetType) bool {
	types, ok := categoryAssetTypes[category]
	if !ok {
		return true
	}
	for _, t := range types {
		if t == assetType {
			return true
		}
	}
	return false
}

// AssetRepository manages asset persistence.
type AssetRepository interface {
	Get(ctx context.Context, id string) (*Asset, error)
	ListMonitored(ctx context.Context) ([]Asset, error)
	Save(ctx context.Context, asset *Asset) error
}
