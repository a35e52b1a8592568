package Assets

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Gmao/Models"
)

// SetUnderMaintenance flags the asset as unavailable.
func SetUnderMaintenance(tx *gorm.DB, ref Models.AssetRef) error {
	asset, err := LoadForUpdate(tx, ref)
	if err != nil {
		return err
	}
	if asset.Status() == asset.MaintenanceStatus() {
		return nil
	}
	return setStatus(tx, asset, asset.MaintenanceStatus())
}

// SetOperational releases the asset unless another work order still holds
// it (in progress or on hold). excluding is the order doing the release.
// Assets that are not in their maintenance status are left alone.
func SetOperational(tx *gorm.DB, ref Models.AssetRef, excluding uint) (bool, error) {
	asset, err := LoadForUpdate(tx, ref)
	if err != nil {
		return false, err
	}

	var others int64
	err = tx.Model(&Models.WorkOrder{}).
		Where("asset_type = ? AND asset_id = ? AND id <> ?", ref.Kind, ref.ID, excluding).
		Where("status IN ?", Models.ActiveStatuses).
		Count(&others).Error
	if err != nil {
		return false, fmt.Errorf("counting active work orders on %s: %w", ref, err)
	}
	if others > 0 {
		log.WithFields(log.Fields{
			"asset":  ref.String(),
			"active": others,
		}).Info("asset kept under maintenance by other work orders")
		return false, nil
	}

	if asset.Status() != asset.MaintenanceStatus() {
		return false, nil
	}
	if err := setStatus(tx, asset, asset.OperationalStatus()); err != nil {
		return false, err
	}
	return true, nil
}

func setStatus(tx *gorm.DB, asset Models.Asset, status string) error {
	if err := tx.Model(asset).UpdateColumn("status", status).Error; err != nil {
		return fmt.Errorf("setting %s to %s: %w", asset.Ref(), status, err)
	}
	asset.SetStatus(status)
	return nil
}
