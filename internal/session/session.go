// Package session owns the per-tenant execution state: one interpreter, one
// namespace view, one scratch directory, one set of trackers. Every
// external operation on a session goes through a single mutex, so cells
// within a session are strictly serialised while sessions stay independent
// of each other.
package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cellexec/internal/assets"
	"cellexec/internal/config"
	"cellexec/internal/executor"
	"cellexec/internal/history"
	"cellexec/internal/interp"
	"cellexec/internal/output"
	"cellexec/internal/security"
	"cellexec/internal/tracker"
	"cellexec/internal/widget"
	"cellexec/pkg/charts"
	"cellexec/pkg/nbsdk"
)

// Namespace roots the cleanup paths must never touch, and import roots that
// are never attributed to cells or unloaded.
var (
	protectedNames   = []string{"nb"}
	protectedImports = []string{"nbsdk", "ui", "charts", "frames", "fmt", "time", "encoding", "errors"}
)

// deps carries the shared collaborators a session is built over.
type deps struct {
	cfg        *config.Config
	validator  *security.Validator
	marshaller *output.Marshaller
	fetcher    assets.Fetcher
	history    *history.Store
	logger     *zap.Logger
}

// Session is one tenant's live notebook runtime.
type Session struct {
	id          string
	componentID string
	scratchDir  string

	mu      sync.Mutex
	it      *interp.Interp
	ns      *interp.Namespace
	tracker *tracker.Tracker
	widgets *widget.Registry
	figures *charts.Registry
	exec    *executor.Executor

	history *history.Store
	logger  *zap.Logger

	lastAccessed atomic.Int64
	closed       bool
}

// newSession constructs a session: scratch directory, staged assets,
// interpreter with SDK injection, and the initialization cell run from the
// notebook source. A failing initialization cell fails construction;
// failing asset staging does not.
func newSession(ctx context.Context, id, componentID, notebookSource string, d deps) (*Session, error) {
	scratchDir, err := os.MkdirTemp("", "cellexec-"+sanitizeID(id)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	logger := d.logger.With(zap.String("session_id", id))

	if componentID != "" && d.fetcher != nil {
		n, err := d.fetcher.StageComponentAssets(ctx, componentID, scratchDir)
		if err != nil {
			logger.Warn("asset staging incomplete",
				zap.String("component_id", componentID),
				zap.Int("staged", n),
				zap.Error(err))
		} else if n > 0 {
			logger.Info("assets staged",
				zap.String("component_id", componentID),
				zap.Int("staged", n))
		}
	}

	handle := nbsdk.NewHandle(scratchDir)
	figures := charts.NewRegistry(d.cfg.Output.PlotWidth, d.cfg.Output.PlotHeight)

	it, err := interp.New(d.cfg.Security.AllowedImports, interp.SDKExports(handle, figures))
	if err != nil {
		os.RemoveAll(scratchDir)
		return nil, err
	}
	if err := it.Bootstrap(); err != nil {
		os.RemoveAll(scratchDir)
		return nil, fmt.Errorf("failed to bootstrap session: %w", err)
	}

	ns := interp.NewNamespace(it)
	ns.Refresh()
	tr := tracker.New(protectedNames, protectedImports)

	widgets := widget.NewRegistry()
	s := &Session{
		id:          id,
		componentID: componentID,
		scratchDir:  scratchDir,
		it:          it,
		ns:          ns,
		tracker:     tr,
		widgets:     widgets,
		figures:     figures,
		history:     d.history,
		logger:      logger,
		exec:        executor.New(d.validator, d.marshaller, it, ns, tr, widgets, figures, logger),
	}
	s.Touch()

	res := s.exec.Execute(tracker.InitializationCell, notebookSource)
	if !res.Success {
		s.teardown()
		return nil, fmt.Errorf("notebook initialization failed: %s", res.Err)
	}
	for _, out := range res.Outputs {
		if out.Kind == output.Error || out.Kind == output.Warning {
			logger.Warn("initialization output",
				zap.String("kind", string(out.Kind)),
				zap.String("content", out.Content))
		}
	}

	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ScratchDir returns the session's working directory.
func (s *Session) ScratchDir() string { return s.scratchDir }

// Touch updates the last-accessed timestamp.
func (s *Session) Touch() {
	s.lastAccessed.Store(time.Now().UnixNano())
}

// IdleFor returns how long since the session was last used.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastAccessed.Load()))
}

// ExecuteCell runs one cell under the session lock.
func (s *Session) ExecuteCell(cellID, source string) executor.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Touch()

	if s.closed {
		return executor.Result{
			Success: false,
			Outputs: []output.Output{output.Errorf("session is closed")},
			Err:     "session is closed",
		}
	}

	start := time.Now()
	res := s.exec.Execute(cellID, source)
	s.recordExecution(cellID, res, time.Since(start))
	return res
}

// UpdateWidgetValue applies a raw client value to a widget. The stored
// value is the coerced, repaired one.
func (s *Session) UpdateWidgetValue(widgetID, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Touch()

	if s.closed {
		return fmt.Errorf("session is closed")
	}

	repaired, err := s.widgets.UpdateValue(widgetID, raw)
	if err != nil {
		return err
	}
	if repaired {
		s.logger.Debug("widget value repaired", zap.String("widget_id", widgetID))
	}
	return nil
}

// State returns the display snapshot of the namespace and every widget
// descriptor.
func (s *Session) State() (bindings map[string]string, widgets map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Touch()
	return s.exec.CellState(), s.widgets.Snapshot()
}

// Analytics returns the tracked-state census.
func (s *Session) Analytics() tracker.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Report(s.ns.Len())
}

// CheckIntegrity reports tracker inconsistencies.
func (s *Session) CheckIntegrity() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CheckIntegrity(s.ns)
}

// Repair drops orphaned tracker state and reports what it did.
func (s *Session) Repair() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Repair(s.ns)
}

// Close releases the session: figures, scratch directory. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.teardown()
}

func (s *Session) teardown() error {
	s.figures.CloseAll()
	if err := os.RemoveAll(s.scratchDir); err != nil {
		s.logger.Warn("failed to remove scratch directory", zap.Error(err))
		return err
	}
	return nil
}

func (s *Session) recordExecution(cellID string, res executor.Result, dur time.Duration) {
	if s.history == nil {
		return
	}
	err := s.history.RecordExecution(history.Execution{
		SessionID:   s.id,
		CellID:      cellID,
		Success:     res.Success,
		DurationMS:  dur.Milliseconds(),
		OutputCount: len(res.Outputs),
		Error:       res.Err,
	})
	if err != nil {
		s.logger.Warn("failed to record execution history", zap.Error(err))
	}
}

// sanitizeID keeps scratch-dir names filesystem-safe.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
