package Alerts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"Gmao/Alerts"
	"Gmao/Models"
	"Gmao/testutil"
)

func TestMultiDeliversToEverySink(t *testing.T) {
	failing := &testutil.MockNotifier{}
	ok := &testutil.MockNotifier{}
	failing.On("Notify", mock.Anything, testutil.OfType(Models.NotifyLowStock)).Return(errors.New("offline"))
	ok.On("Notify", mock.Anything, testutil.OfType(Models.NotifyLowStock)).Return(nil)

	err := Alerts.Multi{failing, nil, ok}.Notify(context.Background(), Alerts.Notification{Type: Models.NotifyLowStock})
	assert.EqualError(t, err, "offline")
	failing.AssertExpectations(t)
	ok.AssertExpectations(t)
}

func TestEmitSwallowsErrors(t *testing.T) {
	failing := &testutil.MockNotifier{}
	failing.On("Notify", mock.Anything, mock.Anything).Return(errors.New("boom"))

	assert.NotPanics(t, func() {
		Alerts.Emit(context.Background(), failing, Alerts.Notification{Title: "x"})
		Alerts.Emit(context.Background(), nil, Alerts.Notification{Title: "x"})
	})
	failing.AssertNumberOfCalls(t, "Notify", 1)
}

func TestInboxDeduplicatesWithinWindow(t *testing.T) {
	db := testutil.NewDB(t)
	now := time.Now()
	inbox := &Alerts.Inbox{DB: db, Window: 24 * time.Hour, Now: func() time.Time { return now }}
	user := uint(3)
	n := Alerts.Notification{Type: Models.NotifyWorkOrderAssigned, SiteID: 1, UserID: &user, Title: "OT-2025-0001 assigned"}

	require.NoError(t, inbox.Notify(context.Background(), n))
	require.NoError(t, inbox.Notify(context.Background(), n))

	var count int64
	require.NoError(t, db.Model(&Models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other := n
	other.UserID = nil
	require.NoError(t, inbox.Notify(context.Background(), other))
	require.NoError(t, db.Model(&Models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	now = now.Add(25 * time.Hour)
	require.NoError(t, inbox.Notify(context.Background(), n))
	require.NoError(t, db.Model(&Models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
