package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gymschedule/internal/backup"
	"gymschedule/internal/config"
	"gymschedule/internal/cursor"
	"gymschedule/internal/db"
	"gymschedule/internal/google"
	"gymschedule/internal/metrics"
	"gymschedule/internal/service"
	"gymschedule/internal/slots"
	"gymschedule/internal/workbook"
)

type sheets interface {
	service.MemberSheet
	service.ReservationSheets
}

// app holds everything one command needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	schedule *slots.Schedule
	store    *db.DB
	journal  *backup.Journal
	redis    *redis.Client
	svc      *service.Service
}

func newApp(ctx context.Context, cfgPath string, logOut io.Writer) (*app, error) {
	if err := config.LoadEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	output := zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).
		Level(cfg.LogLevel()).
		With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, schedule: schedule}

	a.store, err = db.NewDB(cfg.Database.Path, cfg.Timetable.Capacity, &a.logger)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sh, err := a.openSheets(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.svc = service.New(a.store, sh, sh, schedule, cursor.SystemClock{Location: loc}, &a.logger)

	if cfg.Backup.Enabled {
		bs, err := a.openBackupStore()
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.journal = backup.NewJournal(bs, cfg.Backup.RetentionDays, &a.logger)
		a.svc.UseJournal(a.journal)
	}

	metrics.Register()
	return a, nil
}

func (a *app) openSheets(ctx context.Context) (sheets, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendGoogle:
		g := a.cfg.Storage.Google
		svc, err := google.NewSheetsService(ctx, g.CredentialsFile, g.SpreadsheetID, g.RequestsPerMinute, a.schedule, &a.logger)
		if err != nil {
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		return svc, nil
	default:
		return workbook.New(a.cfg.Storage.Workbook.Path, a.schedule, &a.logger), nil
	}
}

func (a *app) openBackupStore() (backup.Store, error) {
	if a.cfg.RedisEnabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Address,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		return backup.NewRedisStore(a.redis, "", a.cfg.BackupRetention()), nil
	}
	return backup.NewFileStore(a.cfg.Backup.Path)
}

// Close cleans up old backups, exports metrics and releases connections.
func (a *app) Close(ctx context.Context) {
	if a.journal != nil {
		a.journal.Cleanup(ctx)
	}
	if a.cfg != nil {
		if err := metrics.Flush(ctx, a.cfg.Metrics.Textfile, a.cfg.Metrics.PushgatewayURL); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to export metrics")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}
