package Assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Gmao/Models"
	"Gmao/testutil"
)

func workOrder(t *testing.T, db *gorm.DB, ref Models.AssetRef, code string, status Models.WorkOrderStatus) *Models.WorkOrder {
	t.Helper()
	wo := &Models.WorkOrder{
		Code: code, Title: code, AssetType: ref.Kind, AssetID: ref.ID,
		Type: Models.TypeCorrective, Priority: Models.PriorityMedium, Status: status,
	}
	require.NoError(t, db.Create(wo).Error)
	return wo
}

func truckStatus(t *testing.T, db *gorm.DB, id uint) string {
	t.Helper()
	var truck Models.Truck
	require.NoError(t, db.First(&truck, id).Error)
	return truck.State
}

func TestSetOperationalWaitsForOtherActiveOrders(t *testing.T) {
	db := testutil.NewDB(t)
	truck := testutil.Truck(t, db, 1, "123-TU-4567", 10000)
	ref := truck.Ref()

	first := workOrder(t, db, ref, "OT-2025-0001", Models.StatusInProgress)
	second := workOrder(t, db, ref, "OT-2025-0002", Models.StatusInProgress)
	require.NoError(t, SetUnderMaintenance(db, ref))
	assert.Equal(t, Models.TruckMaintenance, truckStatus(t, db, truck.ID))

	require.NoError(t, db.Model(first).Update("status", Models.StatusCompleted).Error)
	released, err := SetOperational(db, ref, first.ID)
	require.NoError(t, err)
	assert.False(t, released)
	assert.Equal(t, Models.TruckMaintenance, truckStatus(t, db, truck.ID))

	require.NoError(t, db.Model(second).Update("status", Models.StatusOnHold).Error)
	released, err = SetOperational(db, ref, first.ID)
	require.NoError(t, err)
	assert.False(t, released, "an on-hold order still holds the asset")

	require.NoError(t, db.Model(second).Update("status", Models.StatusCompleted).Error)
	released, err = SetOperational(db, ref, second.ID)
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, Models.TruckAvailable, truckStatus(t, db, truck.ID))
}

func TestSetOperationalLeavesOutOfServiceAlone(t *testing.T) {
	db := testutil.NewDB(t)
	eq := testutil.Equipment(t, db, 1, "EQ-01")
	require.NoError(t, db.Model(eq).UpdateColumn("status", Models.EquipmentOutOfService).Error)

	released, err := SetOperational(db, eq.Ref(), 0)
	require.NoError(t, err)
	assert.False(t, released)

	var reloaded Models.Equipment
	require.NoError(t, db.First(&reloaded, eq.ID).Error)
	assert.Equal(t, Models.EquipmentOutOfService, reloaded.State)
}

func TestRecordReadingIsMonotonic(t *testing.T) {
	db := testutil.NewDB(t)
	truck := testutil.Truck(t, db, 1, "200-TU-1", 50000)

	applied, err := RecordReading(db, truck.Ref(), 49000)
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = RecordReading(db, truck.Ref(), 51200)
	require.NoError(t, err)
	assert.True(t, applied)

	counter, err := Counter(db, truck.Ref())
	require.NoError(t, err)
	assert.Equal(t, int64(51200), counter)
}

func TestLoadUnknownAsset(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := Load(db, Models.AssetRef{Kind: Models.AssetTruck, ID: 42})
	assert.ErrorIs(t, err, Models.ErrNotFound)

	_, err = Load(db, Models.AssetRef{Kind: "boat", ID: 1})
	assert.True(t, Models.IsValidation(err))
}
