package Assets

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gmao/Models"
)

// Load reads the asset behind ref.
func Load(tx *gorm.DB, ref Models.AssetRef) (Models.Asset, error) {
	asset, err := Models.NewAsset(ref.Kind)
	if err != nil {
		return nil, err
	}
	if err := tx.First(asset, ref.ID).Error; err != nil {
		return nil, Models.NotFound(err, ref.String())
	}
	return asset, nil
}

// LoadForUpdate reads the asset and holds its row lock until tx ends where the
// dialect supports row locks.
func LoadForUpdate(tx *gorm.DB, ref Models.AssetRef) (Models.Asset, error) {
	return Load(tx.Clauses(clause.Locking{Strength: "UPDATE"}), ref)
}

// Counter returns the asset's current usage meter.
func Counter(tx *gorm.DB, ref Models.AssetRef) (int64, error) {
	asset, err := Load(tx, ref)
	if err != nil {
		return 0, err
	}
	return asset.Counter(), nil
}

// DisplayName resolves a human label, falling back to the reference itself.
func DisplayName(tx *gorm.DB, ref Models.AssetRef) string {
	asset, err := Load(tx, ref)
	if err != nil {
		return ref.String()
	}
	return asset.DisplayName()
}

func counterColumn(kind Models.AssetKind) string {
	if kind == Models.AssetTruck {
		return "mileage"
	}
	return "operating_hours"
}

// RecordReading raises the stored counter to reading. Lower readings are
// ignored and reported as not applied.
func RecordReading(tx *gorm.DB, ref Models.AssetRef, reading int64) (bool, error) {
	asset, err := LoadForUpdate(tx, ref)
	if err != nil {
		return false, err
	}
	current := asset.Counter()
	if !asset.RaiseCounter(reading) {
		log.WithFields(log.Fields{
			"asset":   ref.String(),
			"current": current,
			"reading": reading,
		}).Debug("ignoring counter reading below current value")
		return false, nil
	}
	if err := tx.Model(asset).UpdateColumn(counterColumn(ref.Kind), reading).Error; err != nil {
		return false, fmt.Errorf("updating counter of %s: %w", ref, err)
	}
	return true, nil
}
