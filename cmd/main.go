package main

import (
	"context"
	"flag"
	stdlog "log"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/api"
	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/config"
	"github.com/fieldops/console/pkg/digest"
	"github.com/fieldops/console/pkg/escalation"
	"github.com/fieldops/console/pkg/features"
	"github.com/fieldops/console/pkg/notify"
	"github.com/fieldops/console/pkg/reminder"
	"github.com/fieldops/console/pkg/scheduler"
	"github.com/fieldops/console/pkg/store"
	"github.com/fieldops/console/pkg/tasks"
	"github.com/fieldops/console/pkg/version"
)

func main() {
	var debug bool
	var configPath string
	flag.BoolVar(&debug, "debug", false, "enables debug mode")
	flag.StringVar(&configPath, "config", "", "path to the config file")
	flag.Parse()

	log := setupLogger(debug)
	log.With("version", version.Version).Info("Starting fieldops console")

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading console config: %v", err)
	}
	cfg.Debug = cfg.Debug || debug

	if debug {
		log.Infof("%#v", cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Fatalf("Error connecting to datastore: %v", err)
	}
	defer db.Close()

	auditSvc := setupAudit(cfg, log)
	defer auditSvc.Close()

	dispatcher := setupDispatcher(cfg, log)

	ladders := escalation.DefaultLadders()
	if cfg.LadderFile != "" {
		ladders, err = escalation.LoadLadders(cfg.LadderFile)
		if err != nil {
			log.Fatalf("Error loading escalation ladders: %v", err)
		}
	}

	branding := cfg.Frontend.BrandingName
	resolver := features.NewResolver(cfg.Features, db.Tenants, log)
	escalationEngine := escalation.NewEngine(db.Tasks, db.Projects, dispatcher, ladders, auditSvc, branding, log)
	reminderEngine := reminder.NewEngine(db.Tasks, db.Projects, dispatcher, auditSvc, branding, log)
	digestAggregator := digest.NewAggregator(db.Tasks, db.Projects, dispatcher, auditSvc, branding, log)

	runner := scheduler.NewRunner(db.Tenants, resolver, log)
	runner.Register(scheduler.Job{
		Name:     "escalations",
		Feature:  features.KeyEscalations,
		Interval: interval(log, "escalations", cfg.Scheduler.EscalationInterval),
		Run: func(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (any, error) {
			return escalationEngine.Run(ctx, tenant, prefs)
		},
	})
	runner.Register(scheduler.Job{
		Name:     "reminders",
		Feature:  features.KeyReminders,
		Interval: interval(log, "reminders", cfg.Scheduler.ReminderInterval),
		Run: func(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (any, error) {
			return reminderEngine.Run(ctx, tenant, prefs)
		},
	})
	runner.Register(scheduler.Job{
		Name:     "digest",
		Feature:  features.KeyWeeklyDigest,
		Interval: interval(log, "digest", cfg.Scheduler.DigestInterval),
		Gate:     func(prefs store.Preferences) bool { return prefs.WeeklyDigest },
		Run: func(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (any, error) {
			return digestAggregator.Run(ctx, tenant, prefs)
		},
	})
	if cfg.Scheduler.Enabled {
		runner.Start(ctx)
	} else {
		log.Info("Scheduler disabled, jobs run on manual trigger only")
	}

	server := api.NewServer(log.Desugar(), cfg, db)
	err = server.RegisterAll([]api.APIController{
		tasks.NewController(db.Tasks, db.Projects, auditSvc, log),
		features.NewController(db.Tenants, resolver, auditSvc, log),
		escalation.NewController(ladders),
		scheduler.NewController(runner, log),
	})
	if err != nil {
		log.Fatalf("Error registering console controllers: %v", err)
	}

	server.Listen()
}

func setupAudit(cfg config.Config, log *zap.SugaredLogger) *audit.Service {
	if len(cfg.Audit.Brokers) == 0 {
		return audit.NewService(nil, log)
	}
	sink, err := audit.NewKafkaSink(cfg.Audit, log.Desugar())
	if err != nil {
		log.Fatalf("Error creating Kafka audit sink: %v", err)
	}
	return audit.NewService(sink, log)
}

func setupDispatcher(cfg config.Config, log *zap.SugaredLogger) *notify.Dispatcher {
	var email notify.EmailSender
	if cfg.Mail.Host != "" {
		email = notify.NewSMTPSender(cfg.Mail, log)
	} else {
		log.Warn("No SMTP host configured, email notifications will be skipped")
	}
	var sms notify.SMSSender
	if cfg.SMS.GatewayURL != "" {
		sms = notify.NewGatewaySender(cfg.SMS, log)
	}
	return notify.NewDispatcher(email, sms, log)
}

func interval(log *zap.SugaredLogger, job, raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("Invalid interval %q for job %s: %v", raw, job, err)
	}
	return d
}

func setupLogger(debug bool) *zap.SugaredLogger {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		stdlog.Fatalf("failed to set up logger: %v", err)
	}
	return zlog.Sugar()
}
