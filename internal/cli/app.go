// Package cli implements the meetcost command tree.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/mmynk/meetcost/internal/config"
	"github.com/mmynk/meetcost/internal/extractor"
	"github.com/mmynk/meetcost/internal/feedback"
	"github.com/mmynk/meetcost/internal/mail"
	"github.com/mmynk/meetcost/internal/metrics"
	"github.com/mmynk/meetcost/internal/record"
	"github.com/mmynk/meetcost/internal/resolver"
	"github.com/mmynk/meetcost/internal/server"
	"github.com/mmynk/meetcost/internal/service"
	"github.com/mmynk/meetcost/internal/storage"
	"github.com/mmynk/meetcost/internal/storage/csvtable"
	"github.com/mmynk/meetcost/internal/storage/postgres"
	"github.com/mmynk/meetcost/internal/storage/sqlite"
)

// Database is a store that also hosts the lookup tables.
type Database interface {
	storage.Store
	Roles() storage.RoleTable
	Wages() storage.WageTable
}

// Tables are the lookup tables the resolver reads.
type Tables struct {
	Roles storage.RoleTable
	Wages storage.WageTable
}

// App holds the dependency graph of one command invocation.
type App struct {
	Config   *config.Config
	injector do.Injector
	closers  []func() error
}

// NewApp registers every component lazily; nothing connects until invoked.
func NewApp(cfg *config.Config) *App {
	a := &App{Config: cfg, injector: do.New()}
	i := a.injector

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, prometheus.NewRegistry())

	do.Provide(i, func(i do.Injector) (*metrics.Metrics, error) {
		return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
	})

	do.Provide(i, func(i do.Injector) (Database, error) {
		db, err := openDatabase(do.MustInvoke[*config.Config](i))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db, nil
	})

	do.Provide(i, func(i do.Injector) (Tables, error) {
		return openTables(i)
	})

	do.Provide(i, func(i do.Injector) (*resolver.Resolver, error) {
		t := do.MustInvoke[Tables](i)
		return resolver.New(t.Roles, t.Wages), nil
	})

	do.Provide(i, func(i do.Injector) (*extractor.Extractor, error) {
		return extractor.New(do.MustInvoke[*config.Config](i).OrgDomain), nil
	})

	do.Provide(i, func(i do.Injector) (*record.Assembler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := do.Invoke[Database](i)
		if err != nil {
			return nil, err
		}
		return record.New(cfg.OrgDomain, db), nil
	})

	do.Provide(i, func(i do.Injector) (mail.Source, error) {
		src, err := do.MustInvoke[*config.Config](i).MailSource()
		if err != nil {
			return nil, err
		}
		return mail.NewIMAPSource(src), nil
	})

	do.Provide(i, func(i do.Injector) (mail.Sink, error) {
		sink, err := do.MustInvoke[*config.Config](i).MailSink()
		if err != nil {
			return nil, err
		}
		smtp, err := mail.NewSMTPSink(sink)
		if err != nil {
			return nil, err
		}
		return smtp, nil
	})

	do.Provide(i, func(i do.Injector) (*feedback.LinkSigner, error) {
		fc := do.MustInvoke[*config.Config](i).Feedback
		if fc.SigningKey == "" {
			slog.Warn("FEEDBACK_SIGNING_KEY is empty, feedback links carry raw participant tokens")
		}
		return feedback.NewLinkSigner(fc.SigningKey, fc.LinkTTL), nil
	})

	do.Provide(i, func(i do.Injector) (*service.MeetingService, error) {
		res, err := do.Invoke[*resolver.Resolver](i)
		if err != nil {
			return nil, err
		}
		asm, err := do.Invoke[*record.Assembler](i)
		if err != nil {
			return nil, err
		}
		return service.NewMeetingService(
			optional[mail.Source](i),
			optional[mail.Sink](i),
			do.MustInvoke[*extractor.Extractor](i),
			res,
			asm,
			do.MustInvoke[*metrics.Metrics](i),
			service.WithReportBaseURL(do.MustInvoke[*config.Config](i).Feedback.BaseURL),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*service.FeedbackService, error) {
		db, err := do.Invoke[Database](i)
		if err != nil {
			return nil, err
		}
		return service.NewFeedbackService(
			db,
			optional[mail.Sink](i),
			do.MustInvoke[*feedback.LinkSigner](i),
			do.MustInvoke[*config.Config](i).Feedback.BaseURL,
			do.MustInvoke[*metrics.Metrics](i),
		), nil
	})

	do.Provide(i, func(i do.Injector) (*server.Server, error) {
		fb, err := do.Invoke[*service.FeedbackService](i)
		if err != nil {
			return nil, err
		}
		return server.New(fb, do.MustInvoke[*prometheus.Registry](i)), nil
	})

	return a
}

// optional resolves a mail component, or returns its zero value when it is
// not configured. Commands that need it invoke it first to surface the error.
func optional[T any](i do.Injector) T {
	v, err := do.Invoke[T](i)
	if err != nil {
		slog.Debug("Optional component unavailable", "error", err)
		var zero T
		return zero
	}
	return v
}

func openDatabase(cfg *config.Config) (Database, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := sqlite.New(cfg.Store.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openTables(i do.Injector) (Tables, error) {
	cfg := do.MustInvoke[*config.Config](i)

	if cfg.Tables.Backend == config.TablesCSV {
		roles, err := csvtable.OpenRoles(cfg.Tables.RolePath)
		if err != nil {
			return Tables{}, err
		}
		wages, err := csvtable.OpenWages(cfg.Tables.WagePath)
		if err != nil {
			return Tables{}, err
		}
		return Tables{Roles: roles, Wages: wages}, nil
	}

	db, err := do.Invoke[Database](i)
	if err != nil {
		return Tables{}, err
	}
	return Tables{Roles: db.Roles(), Wages: db.Wages()}, nil
}

// Close releases everything the invocation opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
