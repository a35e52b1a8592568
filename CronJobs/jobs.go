package CronJobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"Gmao/Models"
	"Gmao/Preventive"
)

// Runner is the part of the preventive service the scheduler drives.
type Runner interface {
	CheckAndGenerateDue(ctx context.Context, scope Preventive.Scope) (*Preventive.Report, error)
	SendReminders(ctx context.Context, siteID uint) (int, error)
}

// PreventiveScheduler runs the due-plan generation and the reminder pass on
// cron schedules, one run per site with bounded concurrency.
type PreventiveScheduler struct {
	cronScheduler  *cron.Cron
	db             *gorm.DB
	runner         Runner
	concurrency    int
	runImmediately bool
	generationSpec string
	reminderSpec   string

	mu           sync.Mutex
	generationID cron.EntryID
	reminderID   cron.EntryID
}

type Options struct {
	GenerationSchedule string
	ReminderSchedule   string
	Concurrency        int
	RunImmediately     bool
	Location           *time.Location
}

// NewPreventiveScheduler creates a scheduler. A run still in progress when
// its next tick fires makes that tick a no-op.
func NewPreventiveScheduler(db *gorm.DB, runner Runner, opts Options) *PreventiveScheduler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	cronLogger := cron.PrintfLogger(log.StandardLogger())
	return &PreventiveScheduler{
		cronScheduler: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(opts.Location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		db:             db,
		runner:         runner,
		concurrency:    opts.Concurrency,
		runImmediately: opts.RunImmediately,
		generationSpec: opts.GenerationSchedule,
		reminderSpec:   opts.ReminderSchedule,
	}
}

// Start registers both jobs and starts the cron loop.
func (s *PreventiveScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.generationID, err = s.cronScheduler.AddFunc(s.generationSpec, func() {
		log.Info("Running scheduled preventive generation")
		s.RunGeneration(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error scheduling generation job: %w", err)
	}
	if s.reminderSpec != "" {
		s.reminderID, err = s.cronScheduler.AddFunc(s.reminderSpec, func() {
			s.RunReminders(context.Background())
		})
		if err != nil {
			return fmt.Errorf("error scheduling reminder job: %w", err)
		}
	}

	s.cronScheduler.Start()
	log.WithFields(log.Fields{"generation": s.generationSpec, "reminders": s.reminderSpec}).Info("Preventive scheduler started")

	if s.runImmediately {
		go s.RunGeneration(context.Background())
	}
	return nil
}

// Stop terminates the scheduler and waits for running jobs.
func (s *PreventiveScheduler) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		log.Info("Preventive scheduler stopped")
	}
}

// UpdateSchedule changes the generation schedule.
// Format: "0 0 6 * * *" = At 06:00:00 every day
func (s *PreventiveScheduler) UpdateSchedule(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronScheduler.AddFunc(schedule, func() {
		log.Info("Running scheduled preventive generation")
		s.RunGeneration(context.Background())
	})
	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}
	s.cronScheduler.Remove(s.generationID)
	s.generationID = id
	s.generationSpec = schedule

	log.WithField("schedule", schedule).Info("Preventive generation schedule updated")
	return nil
}

// Schedule returns the current generation spec and its next fire time.
func (s *PreventiveScheduler) Schedule() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generationSpec, s.cronScheduler.Entry(s.generationID).Next
}

// RunManualCheck runs the generation for one site outside the schedule.
func (s *PreventiveScheduler) RunManualCheck(ctx context.Context, siteID uint, dryRun bool) (*Preventive.Report, error) {
	log.WithFields(log.Fields{"site_id": siteID, "dry_run": dryRun}).Info("Running manual preventive check")
	return s.runner.CheckAndGenerateDue(ctx, Preventive.Scope{SiteID: siteID, DryRun: dryRun})
}

// RunGeneration runs the batch for every site. Sites are independent: one
// failing does not stop the others.
func (s *PreventiveScheduler) RunGeneration(ctx context.Context) []*Preventive.Report {
	sites, err := s.sites(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list sites for preventive generation")
		return nil
	}

	reports := make([]*Preventive.Report, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, site := range sites {
		g.Go(func() error {
			report, err := s.runner.CheckAndGenerateDue(gctx, Preventive.Scope{SiteID: site})
			if err != nil {
				log.WithError(err).WithField("site_id", site).Error("Preventive generation failed for site")
				return nil
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()

	out := reports[:0]
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// RunReminders sends plan reminders for every site and returns how many
// went out.
func (s *PreventiveScheduler) RunReminders(ctx context.Context) int {
	sites, err := s.sites(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list sites for reminders")
		return 0
	}
	total := 0
	for _, site := range sites {
		sent, err := s.runner.SendReminders(ctx, site)
		if err != nil {
			log.WithError(err).WithField("site_id", site).Error("Failed to send plan reminders")
			continue
		}
		total += sent
	}
	log.WithField("sent", total).Info("Plan reminders sent")
	return total
}

// sites lists the site ids that own at least one active plan.
func (s *PreventiveScheduler) sites(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&Models.MaintenancePlan{}).
		Where("is_active = ?", true).
		Distinct().
		Order("site_id").
		Pluck("site_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
