package CronJobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/testutil"
)

type fakeRunner struct {
	mu        sync.Mutex
	scopes    []Preventive.Scope
	reminded  []uint
	failSite  uint
	remindErr error
}

func (f *fakeRunner) CheckAndGenerateDue(_ context.Context, scope Preventive.Scope) (*Preventive.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	if scope.SiteID == f.failSite {
		return nil, errors.New("database is locked")
	}
	return &Preventive.Report{SiteID: scope.SiteID, DryRun: scope.DryRun, Generated: 1}, nil
}

func (f *fakeRunner) SendReminders(_ context.Context, siteID uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminded = append(f.reminded, siteID)
	return 2, f.remindErr
}

func seedPlans(t *testing.T, db *gorm.DB, sites ...uint) {
	t.Helper()
	for i, site := range sites {
		plan := Models.MaintenancePlan{
			SiteID:         site,
			AssetType:      Models.AssetTruck,
			AssetID:        1,
			Code:           "PM-2025-000" + string(rune('1'+i)),
			Name:           "Inspection",
			FrequencyType:  Models.FrequencyMonthly,
			FrequencyValue: 1,
			IsActive:       true,
		}
		require.NoError(t, db.Create(&plan).Error)
	}
}

func TestRunGenerationCoversEverySiteOnce(t *testing.T) {
	db := testutil.NewDB(t)
	seedPlans(t, db, 1, 2, 2, 3)
	runner := &fakeRunner{failSite: 2}
	s := NewPreventiveScheduler(db, runner, Options{GenerationSchedule: "0 0 6 * * *", Concurrency: 2})

	reports := s.RunGeneration(context.Background())
	require.Len(t, reports, 2)

	var sites []int
	for _, scope := range runner.scopes {
		sites = append(sites, int(scope.SiteID))
		assert.False(t, scope.DryRun)
	}
	sort.Ints(sites)
	assert.Equal(t, []int{1, 2, 3}, sites)
}

func TestRunGenerationSkipsInactiveSites(t *testing.T) {
	db := testutil.NewDB(t)
	seedPlans(t, db, 5)
	require.NoError(t, db.Model(&Models.MaintenancePlan{}).Where("site_id = ?", 5).Update("is_active", false).Error)
	runner := &fakeRunner{}
	s := NewPreventiveScheduler(db, runner, Options{GenerationSchedule: "@daily"})

	assert.Empty(t, s.RunGeneration(context.Background()))
	assert.Empty(t, runner.scopes)
}

func TestRunRemindersCarriesOnAfterErrors(t *testing.T) {
	db := testutil.NewDB(t)
	seedPlans(t, db, 1, 4)
	runner := &fakeRunner{}
	s := NewPreventiveScheduler(db, runner, Options{GenerationSchedule: "@daily"})

	assert.Equal(t, 4, s.RunReminders(context.Background()))
	assert.Equal(t, []uint{1, 4}, runner.reminded)

	runner.remindErr = errors.New("smtp down")
	assert.Zero(t, s.RunReminders(context.Background()))
}

func TestRunManualCheckPassesScope(t *testing.T) {
	runner := &fakeRunner{}
	s := NewPreventiveScheduler(testutil.NewDB(t), runner, Options{GenerationSchedule: "@daily"})

	report, err := s.RunManualCheck(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, []Preventive.Scope{{SiteID: 7, DryRun: true}}, runner.scopes)
}

func TestStartAndUpdateSchedule(t *testing.T) {
	s := NewPreventiveScheduler(testutil.NewDB(t), &fakeRunner{}, Options{
		GenerationSchedule: "0 0 6 * * *",
		ReminderSchedule:   "0 0 8 * * *",
		Location:           time.UTC,
	})
	require.NoError(t, s.Start())
	defer s.Stop()

	spec, next := s.Schedule()
	assert.Equal(t, "0 0 6 * * *", spec)
	assert.Equal(t, 6, next.Hour())

	require.NoError(t, s.UpdateSchedule("0 30 5 * * *"))
	spec, next = s.Schedule()
	assert.Equal(t, "0 30 5 * * *", spec)
	assert.Equal(t, 30, next.Minute())

	assert.Error(t, s.UpdateSchedule("not a schedule"))
	spec, _ = s.Schedule()
	assert.Equal(t, "0 30 5 * * *", spec)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewPreventiveScheduler(testutil.NewDB(t), &fakeRunner{}, Options{GenerationSchedule: "whenever"})
	assert.Error(t, s.Start())
}
