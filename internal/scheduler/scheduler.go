// Package scheduler runs periodic cache maintenance and pre-warming.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"repo-insights/internal/analytics"
	"repo-insights/internal/config"
	"repo-insights/internal/service"

	"github.com/robfig/cron/v3"
)

// prewarmTimeout bounds one scheduled analytics run.
const prewarmTimeout = 5 * time.Minute

// Scheduler manages scheduled cache sweeps and repository pre-warming.
type Scheduler struct {
	cron    *cron.Cron
	config  *config.Config
	service *service.Service
}

// New creates a scheduler.
func New(cfg *config.Config, svc *service.Service) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		config:  cfg,
		service: svc,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if !s.config.Scheduler.Enabled {
		log.Println("Scheduler is disabled")
		return nil
	}

	spec := s.config.Scheduler.Cron
	if _, err := s.cron.AddFunc(spec, s.sweepCaches); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	period, err := analytics.ParsePeriod(s.config.Scheduler.Period)
	if err != nil {
		return fmt.Errorf("invalid prewarm period: %w", err)
	}

	for _, repo := range s.config.Scheduler.Repos {
		repo := repo // Capture loop variable
		if _, err := s.cron.AddFunc(spec, func() {
			s.prewarm(repo, period)
		}); err != nil {
			return fmt.Errorf("failed to add prewarm job: %w", err)
		}
		log.Printf("Scheduled pre-warm task added for repo: %s", repo)
	}

	s.cron.Start()
	log.Printf("Scheduler started with cron: %s", spec)
	return nil
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}

// sweepCaches drops expired entries from both cache layers.
func (s *Scheduler) sweepCaches() {
	removed := s.service.SweepCaches()
	if removed > 0 {
		log.Printf("Cache sweep removed %d expired entries", removed)
	}
}

// prewarm refreshes the analytics bundle for one configured repository
// so dashboard requests hit a warm cache.
func (s *Scheduler) prewarm(fullName string, period analytics.Period) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 {
		log.Printf("Skipping malformed prewarm repo: %s", fullName)
		return
	}
	owner, repo := parts[0], parts[1]

	ctx, cancel := context.WithTimeout(context.Background(), prewarmTimeout)
	defer cancel()

	log.Printf("Pre-warming analytics for %s", fullName)
	if _, err := s.service.AnalyticsData(ctx, owner, repo, period, nil); err != nil {
		log.Printf("Failed to pre-warm %s: %v", fullName, err)
		return
	}
	log.Printf("Pre-warm complete for %s", fullName)
}
