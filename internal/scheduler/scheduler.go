// Package scheduler drives the periodic scan loops. It probes the model
// backend at startup and then ticks each work kind independently, so a slow
// compatibility pass never delays document extraction.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/resumatch/resumatch/internal/config"
	"github.com/resumatch/resumatch/internal/pipeline"
	"github.com/resumatch/resumatch/pkg/models"
)

// WorkScanner runs one scan pass per call. Implemented by pipeline.Runner.
type WorkScanner interface {
	ScanDocuments(ctx context.Context, kind string)
	ScanCompatibilities(ctx context.Context)
}

// SettingsSource resolves the model settings used for the startup probe.
// Implemented by store.Store.
type SettingsSource interface {
	GetDefaultUser(ctx context.Context) (*models.User, error)
	GetModelSettings(ctx context.Context, userID uuid.UUID) (*models.ModelSettings, error)
}

type Scheduler struct {
	scanner  WorkScanner
	settings SettingsSource
	factory  pipeline.ClientFactory

	tick          time.Duration
	readyAttempts int
	readyInterval time.Duration
}

func New(scanner WorkScanner, settings SettingsSource, factory pipeline.ClientFactory, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		scanner:       scanner,
		settings:      settings,
		factory:       factory,
		tick:          cfg.TickInterval,
		readyAttempts: cfg.ReadyAttempts,
		readyInterval: cfg.ReadyInterval,
	}
}

// Run blocks until ctx is cancelled. If the model backend never answers the
// startup probe, Run logs and returns without starting any loop; the HTTP
// server keeps serving either way.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.waitReady(ctx) {
		slog.Error("model backend never became ready, background processing disabled")
		return
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go s.loop(ctx, &wg, "resume_documents", func(ctx context.Context) {
		s.scanner.ScanDocuments(ctx, models.KindResume)
	})
	go s.loop(ctx, &wg, "job_posting_documents", func(ctx context.Context) {
		s.scanner.ScanDocuments(ctx, models.KindJobPosting)
	})
	go s.loop(ctx, &wg, "compatibilities", func(ctx context.Context) {
		s.scanner.ScanCompatibilities(ctx)
	})
	wg.Wait()
}

// waitReady probes the default user's model backend until it answers or the
// attempt budget runs out.
func (s *Scheduler) waitReady(ctx context.Context) bool {
	for attempt := 1; attempt <= s.readyAttempts; attempt++ {
		if err := s.probe(ctx); err == nil {
			slog.Info("model backend ready", "attempt", attempt)
			return true
		} else {
			slog.Warn("model backend not ready",
				"attempt", attempt, "max_attempts", s.readyAttempts, "error", err)
		}
		if attempt == s.readyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.readyInterval):
		}
	}
	return false
}

func (s *Scheduler) probe(ctx context.Context) error {
	user, err := s.settings.GetDefaultUser(ctx)
	if err != nil {
		return err
	}
	settings, err := s.settings.GetModelSettings(ctx, user.ID)
	if err != nil {
		return err
	}
	client, err := s.factory.ClientFor(ctx, settings)
	if err != nil {
		return err
	}
	return client.Ready(ctx)
}

// loop runs one scan immediately, then one per tick. Scans within a loop are
// sequential so a kind never overlaps with itself.
func (s *Scheduler) loop(ctx context.Context, wg *sync.WaitGroup, name string, scan func(context.Context)) {
	defer wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	slog.Info("scan loop started", "loop", name, "interval", s.tick)
	scan(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scan loop stopped", "loop", name)
			return
		case <-ticker.C:
			scan(ctx)
		}
	}
}
