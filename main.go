package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Gmao/Alerts"
	"Gmao/Config"
	"Gmao/CronJobs"
	"Gmao/FiberConfig"
	"Gmao/Models"
	"Gmao/Preventive"
	"Gmao/Scheduling"
	"Gmao/Slack"
	"Gmao/Telemetry"
	"Gmao/WorkOrders"
	"Gmao/middleware"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	if err := cfg.SetupLogging(); err != nil {
		log.WithError(err).Fatal("Failed to set up logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := Models.Connect(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	clock := Scheduling.SystemClock{Location: cfg.Scheduler.Location}
	notifier := notifiers(ctx, cfg, db)

	orders := WorkOrders.NewService(db, clock, cfg.HourlyRate, notifier)
	plans := Preventive.NewService(db, clock, notifier)
	plans.AdvanceDays = cfg.Scheduler.AdvanceDays
	plans.AdvanceMileage = cfg.Scheduler.AdvanceMileage

	scheduler := CronJobs.NewPreventiveScheduler(db, plans, CronJobs.Options{
		GenerationSchedule: cfg.Scheduler.GenerationSchedule,
		ReminderSchedule:   cfg.Scheduler.ReminderSchedule,
		Concurrency:        cfg.Scheduler.Concurrency,
		RunImmediately:     cfg.Scheduler.RunOnStart,
		Location:           cfg.Scheduler.Location,
	})
	if err := scheduler.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start preventive scheduler")
	}
	defer scheduler.Stop()

	if cfg.MQTT.Broker != "" {
		ingester := Telemetry.NewOdometerIngester(db, cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err := ingester.Start(); err != nil {
			log.WithError(err).Error("Odometer ingestion disabled")
		} else {
			defer ingester.Stop()
		}
	}

	if cfg.Slack.Token != "" && cfg.Slack.AppToken != "" && cfg.Slack.CommandChannel != "" {
		listener := Slack.NewListener(cfg.Slack.Token, cfg.Slack.AppToken, cfg.Slack.CommandChannel, &Slack.Commands{
			Plans:      plans,
			WorkOrders: orders,
			SiteID:     cfg.Slack.SiteID,
			Actor:      cfg.Slack.BotUserID,
		})
		go func() {
			if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("Slack command listener stopped")
			}
		}()
	}

	app := FiberConfig.NewApp(FiberConfig.Services{
		DB:         db,
		Auth:       middleware.NewAuth(db, cfg.JWT.Secret),
		Plans:      plans,
		WorkOrders: orders,
		Scheduler:  scheduler,
	})
	if err := FiberConfig.Serve(ctx, app, cfg.Server.Port); err != nil {
		log.WithError(err).Error("HTTP server stopped")
	}
}

// notifiers always stores notifications in the inbox and fans out to the
// push channels that are configured.
func notifiers(ctx context.Context, cfg *Config.Config, db *gorm.DB) Alerts.Notifier {
	multi := Alerts.Multi{Alerts.NewInbox(db)}
	if cfg.Firebase.CredentialsPath != "" {
		fcm, err := Alerts.NewFirebaseNotifier(ctx, cfg.Firebase.CredentialsPath, cfg.Firebase.Topic)
		if err != nil {
			log.WithError(err).Error("Firebase notifications disabled")
		} else {
			multi = append(multi, fcm)
		}
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.From != "" {
		multi = append(multi, Alerts.NewEmailNotifier(db, Alerts.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: "GMAO",
			TLS:      cfg.SMTP.TLS,
		}))
	}
	if cfg.Slack.Token != "" && cfg.Slack.Channel != "" {
		multi = append(multi, Alerts.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel))
	}
	return multi
}
