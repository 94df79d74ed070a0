package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/budgetup/budgetup/pkg/audit"
	"github.com/budgetup/budgetup/pkg/config"
	"github.com/budgetup/budgetup/pkg/observability"
	"github.com/budgetup/budgetup/pkg/orgs"
	"github.com/budgetup/budgetup/pkg/storage"
)

const jobTimeout = 5 * time.Minute

// The janitor owns the two retention sweeps: expired unused invitations
// past their grace window, and audit logs past their retention window.
func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	log.SetLevel(logrusLevel(cfg))

	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	orgService := orgs.NewPostgresService(db)
	auditStore := audit.NewStore(db)

	scheduler := cron.New()

	_, err = scheduler.AddFunc(cfg.Janitor.InvitationSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		removed, err := orgService.CleanupExpiredInvitations(ctx, cfg.Invitations.RetentionGrace)
		if err != nil {
			log.WithError(err).Error("invitation cleanup failed")
			return
		}
		log.WithField("removed", removed).Info("invitation cleanup complete")
	})
	if err != nil {
		log.WithError(err).Fatal("invalid invitation cleanup schedule")
	}

	_, err = scheduler.AddFunc(cfg.Janitor.AuditSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		removed, err := auditStore.CleanupOldLogs(ctx, cfg.Janitor.AuditRetention)
		if err != nil {
			log.WithError(err).Error("audit log cleanup failed")
			return
		}
		log.WithField("removed", removed).Info("audit log cleanup complete")
	})
	if err != nil {
		log.WithError(err).Fatal("invalid audit cleanup schedule")
	}

	scheduler.Start()
	log.WithFields(logrus.Fields{
		"invitation_schedule": cfg.Janitor.InvitationSchedule,
		"audit_schedule":      cfg.Janitor.AuditSchedule,
	}).Info("janitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("shutting down")

	// Let any in-flight sweep finish before exiting.
	<-scheduler.Stop().Done()
}

func logrusLevel(cfg *config.Config) logrus.Level {
	switch cfg.Observability.LogLevel {
	case observability.DebugLevel:
		return logrus.DebugLevel
	case observability.WarnLevel:
		return logrus.WarnLevel
	case observability.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
