// internal/api/server.go

// Package api exposes the wizard over HTTP. It is the presentation boundary:
// handlers load the session, apply one store mutation or kick off the
// submission pipeline, and save the session back. All form semantics live in
// the intake packages.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"transaction-intake/internal/common/logger"
	"transaction-intake/internal/intake/store"
	"transaction-intake/internal/intake/submit"
)

// RecordFetcher looks up a persisted record so staff can verify a submission
// landed in the external store.
type RecordFetcher interface {
	GetRecord(ctx context.Context, recordID string) (map[string]interface{}, error)
}

type Server struct {
	sessions *store.SessionStore
	logger   logger.Logger

	persister submit.Persister
	records   RecordFetcher
	renderer  submit.Renderer
	notifier  submit.Notifier
	auditor   submit.Auditor
	submitOpt submit.Options

	// One orchestrator per session so the single-flight guard matches draft
	// ownership: a second submit for the same session is rejected while the
	// first is still running. Entries expire with the session TTL and are
	// dropped by the maintenance sweep.
	orchestrators sync.Map
}

// orchestratorEntry pairs an orchestrator with its eviction deadline. Entries
// are replaced, never mutated, so concurrent submits stay race free.
type orchestratorEntry struct {
	orch      *submit.Orchestrator
	expiresAt time.Time
}

func NewServer(
	sessions *store.SessionStore,
	persister submit.Persister,
	records RecordFetcher,
	renderer submit.Renderer,
	notifier submit.Notifier,
	auditor submit.Auditor,
	submitOpt submit.Options,
	log logger.Logger,
) *Server {
	return &Server{
		sessions:  sessions,
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
		persister: persister,
		records:   records,
		renderer:  renderer,
		notifier:  notifier,
		auditor:   auditor,
		submitOpt: submitOpt,
	}
}

// Register mounts all routes on the fiber app.
func (s *Server) Register(app *fiber.App) {
	app.Get("/health", s.handleHealth)

	api := app.Group("/api")
	api.Post("/sessions", s.handleCreateSession)
	api.Get("/sessions/:id", s.handleGetSession)
	api.Delete("/sessions/:id", s.handleResetSession)
	api.Patch("/sessions/:id/fields", s.handleSetField)
	api.Post("/sessions/:id/clients", s.handleAddClient)
	api.Delete("/sessions/:id/clients/:clientId", s.handleRemoveClient)
	api.Post("/sessions/:id/step", s.handleGoToStep)
	api.Get("/sessions/:id/validation", s.handleValidation)
	api.Post("/sessions/:id/submit", s.handleSubmit)
	api.Get("/records/:recordId", s.handleGetRecord)
}

func (s *Server) orchestratorFor(sessionID string) *submit.Orchestrator {
	expiresAt := time.Now().Add(s.sessions.TTL())
	if v, ok := s.orchestrators.Load(sessionID); ok {
		e := v.(*orchestratorEntry)
		s.orchestrators.Store(sessionID, &orchestratorEntry{orch: e.orch, expiresAt: expiresAt})
		return e.orch
	}
	o := submit.NewOrchestrator(s.persister, s.renderer, s.notifier, s.auditor, s.logger, s.submitOpt)
	actual, _ := s.orchestrators.LoadOrStore(sessionID, &orchestratorEntry{orch: o, expiresAt: expiresAt})
	return actual.(*orchestratorEntry).orch
}

// SweepOrchestrators evicts orchestrators whose session TTL has lapsed.
// Sessions expire out of Redis on their own; their orchestrator entries are
// cleaned up here.
func (s *Server) SweepOrchestrators() {
	s.sweepOrchestrators(time.Now())
}

func (s *Server) sweepOrchestrators(now time.Time) {
	s.orchestrators.Range(func(key, value interface{}) bool {
		if value.(*orchestratorEntry).expiresAt.Before(now) {
			s.orchestrators.Delete(key)
		}
		return true
	})
}
