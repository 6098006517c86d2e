package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/checklist"
	"github.com/wnsgho/legal-full/internal/core/model"
)

// Analyzer is one backend for scoring a part; the hybrid analyzer is the
// default and the GPT-only analyzer the fallback.
type Analyzer interface {
	AnalyzePart(ctx context.Context, partNumber int, contractText string) (model.PartResult, error)
}

// Backend selects the analysis engine for a session.
type Backend string

const (
	BackendHybrid  Backend = "hybrid"
	BackendGPTOnly Backend = "gpt"
)

// StartRequest describes one analysis run.
type StartRequest struct {
	ContractID    string
	ContractName  string
	ContractText  string
	SelectedParts []int
	Backend       Backend
}

// Status is the polling shape of a running session.
type Status struct {
	Status         model.SessionStatus `json:"status"`
	Progress       int                 `json:"progress"`
	Message        string              `json:"message"`
	CompletedParts []int               `json:"completed_parts"`
}

// Orchestrator runs sessions: parts strictly sequential within a session,
// any number of sessions side by side, each isolated in its own goroutine
// and mutated only through the store.
type Orchestrator struct {
	Store          *Store
	Hybrid         Analyzer
	GPTOnly        Analyzer
	Catalog        *checklist.Catalog
	SessionTimeout time.Duration
	log            *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewOrchestrator(store *Store, hybrid, gptOnly Analyzer, catalog *checklist.Catalog, sessionTimeout time.Duration, log *zap.Logger) *Orchestrator {
	if sessionTimeout <= 0 {
		sessionTimeout = 30 * time.Minute
	}
	return &Orchestrator{
		Store:          store,
		Hybrid:         hybrid,
		GPTOnly:        gptOnly,
		Catalog:        catalog,
		SessionTimeout: sessionTimeout,
		log:            log,
		cancels:        make(map[string]context.CancelFunc),
	}
}

// StartAnalysis validates the request, registers a PENDING session, and
// launches its run. Two starts with identical inputs produce two
// independent sessions.
func (o *Orchestrator) StartAnalysis(req StartRequest) (string, error) {
	if req.ContractID == "" {
		return "", model.Faultf(model.ErrBadInput, "contract_id is required")
	}
	if req.ContractName == "" {
		req.ContractName = req.ContractID
	}

	selected := req.SelectedParts
	if selected == nil {
		selected = o.Catalog.PartNumbers()
	}
	selected = append([]int(nil), selected...)
	sort.Ints(selected)
	for _, n := range selected {
		if o.Catalog.Part(n) == nil {
			return "", model.Faultf(model.ErrBadInput, "unknown part %d", n)
		}
	}

	analyzer := o.Hybrid
	if req.Backend == BackendGPTOnly {
		analyzer = o.GPTOnly
	}
	if analyzer == nil {
		return "", model.Faultf(model.ErrBadInput, "backend %q not configured", req.Backend)
	}

	sess := &model.AnalysisSession{
		ID:            uuid.New().String(),
		ContractID:    req.ContractID,
		ContractName:  req.ContractName,
		Status:        model.SessionPending,
		SelectedParts: selected,
		StartedAt:     time.Now().UTC(),
		PartResults:   make(map[int]model.PartResult),
	}
	if err := o.Store.Create(sess); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.SessionTimeout)
	o.mu.Lock()
	o.cancels[sess.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()
		o.run(ctx, sess.ID, analyzer, req.ContractText, selected)
		o.mu.Lock()
		delete(o.cancels, sess.ID)
		o.mu.Unlock()
	}()

	return sess.ID, nil
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, analyzer Analyzer, contractText string, selected []int) {
	o.update(sessionID, func(s *model.AnalysisSession) {
		s.Status = model.SessionRunning
	})

	canceled := false
	for _, partNumber := range selected {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		o.log.Info("analyzing part", zap.String("session", sessionID), zap.Int("part", partNumber))
		result, err := analyzer.AnalyzePart(ctx, partNumber, contractText)
		if err != nil {
			// Parts validate against the catalog at start; an error here is
			// an orchestration bug, recorded without aborting the session.
			o.log.Error("part analyzer error", zap.Int("part", partNumber), zap.Error(err))
			result = model.PartResult{
				PartNumber:       partNumber,
				Status:           model.PartFailed,
				FailReason:       err.Error(),
				ChecklistResults: []model.ItemResult{},
				RelevantClauses:  []string{},
				Recommendations:  []string{},
			}
		}

		o.update(sessionID, func(s *model.AnalysisSession) {
			s.PartResults[partNumber] = result
			s.Progress = progress(s)
		})

		if ctx.Err() != nil {
			canceled = true
			break
		}
	}

	now := time.Now().UTC()
	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	o.update(sessionID, func(s *model.AnalysisSession) {
		switch {
		case timedOut:
			s.Status = model.SessionFailed
			s.Error = "session timeout"
		case canceled:
			s.Status = model.SessionCanceled
		default:
			s.Status = model.SessionCompleted
		}
		s.Progress = progress(s)
		s.FinishedAt = &now
	})
	o.log.Info("session finished", zap.String("session", sessionID), zap.Bool("canceled", canceled))
}

func progress(s *model.AnalysisSession) int {
	if len(s.SelectedParts) == 0 {
		return 100
	}
	return 100 * s.CompletedParts() / len(s.SelectedParts)
}

func (o *Orchestrator) update(sessionID string, fn func(*model.AnalysisSession)) {
	if err := o.Store.Update(sessionID, fn); err != nil {
		o.log.Error("session update failed", zap.String("session", sessionID), zap.Error(err))
	}
}

// Cancel requests cooperative cancellation: the current part finishes
// (failed with reason canceled) and no further part starts. Canceling a
// finished session is a no-op.
func (o *Orchestrator) Cancel(sessionID string) error {
	if _, err := o.Store.Get(sessionID); err != nil {
		return err
	}
	o.mu.Lock()
	cancel, ok := o.cancels[sessionID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// GetStatus reports a consistent snapshot; the session is never nil for a
// known id.
func (o *Orchestrator) GetStatus(sessionID string) (Status, error) {
	sess, err := o.Store.Get(sessionID)
	if err != nil {
		return Status{}, err
	}

	completed := make([]int, 0, len(sess.PartResults))
	for n, r := range sess.PartResults {
		if r.Status == model.PartOK {
			completed = append(completed, n)
		}
	}
	sort.Ints(completed)

	message := ""
	if sess.Error != "" {
		message = sess.Error
	}
	return Status{
		Status:         sess.Status,
		Progress:       sess.Progress,
		Message:        message,
		CompletedParts: completed,
	}, nil
}

// GetPart returns one part result, ErrNotReady while it is still pending.
func (o *Orchestrator) GetPart(sessionID string, partNumber int) (model.PartResult, error) {
	sess, err := o.Store.Get(sessionID)
	if err != nil {
		return model.PartResult{}, err
	}
	if result, ok := sess.PartResults[partNumber]; ok {
		return result, nil
	}
	for _, n := range sess.SelectedParts {
		if n == partNumber {
			return model.PartResult{}, model.Faultf(model.ErrNotReady, "part %d not yet analyzed", partNumber)
		}
	}
	return model.PartResult{}, model.Faultf(model.ErrNotFound, "part %d not selected", partNumber)
}

// GetReport returns the integrated report once the session is terminal.
// Reports of a COMPLETED session are stable across calls.
func (o *Orchestrator) GetReport(sessionID string) (model.IntegratedReport, error) {
	sess, err := o.Store.Get(sessionID)
	if err != nil {
		return model.IntegratedReport{}, err
	}
	if !sess.Status.Terminal() {
		return model.IntegratedReport{}, model.Faultf(model.ErrNotReady, "session %s is %s", sessionID, sess.Status)
	}
	return model.BuildReport(sess), nil
}

// ListSaved lists persisted session summaries.
func (o *Orchestrator) ListSaved() ([]model.SessionSummary, error) {
	return o.Store.ListSaved()
}

// Wait blocks until all running sessions finish; used by tests and
// shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
