package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wnsgho/legal-full/internal/core/model"
)

// Store keeps sessions in memory and mirrors them to disk as two files per
// session: the full body and a small metadata sidecar. Listings read only
// the sidecars, so they stay O(sessions) regardless of part-result size.
type Store struct {
	mu  sync.RWMutex
	dir string
	log *zap.Logger

	sessions map[string]*model.AnalysisSession
}

func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &Store{
		dir:      dir,
		log:      log,
		sessions: make(map[string]*model.AnalysisSession),
	}, nil
}

// Create registers a new session and persists it.
func (s *Store) Create(sess *model.AnalysisSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return model.Faultf(model.ErrBadInput, "session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return s.persistLocked(sess.ID)
}

// Get returns a deep copy so readers never observe orchestrator mutation.
func (s *Store) Get(id string) (*model.AnalysisSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, model.Faultf(model.ErrNotFound, "session %s", id)
	}
	return sess.Clone(), nil
}

// Update applies fn to the session under the write lock and persists the
// result. Part-result appends go through here, making them atomic with
// respect to readers.
func (s *Store) Update(id string, fn func(*model.AnalysisSession)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Faultf(model.ErrNotFound, "session %s", id)
	}
	fn(sess)
	return s.persistLocked(id)
}

// ListSaved returns summaries of every persisted session, newest first,
// reading only the metadata sidecars.
func (s *Store) ListSaved() ([]model.SessionSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var summaries []model.SessionSummary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("unreadable session metadata", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var sum model.SessionSummary
		if err := json.Unmarshal(data, &sum); err != nil {
			s.log.Warn("corrupt session metadata", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

func (s *Store) persistLocked(id string) error {
	sess := s.sessions[id]

	body, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}
	if err := writeAtomic(filepath.Join(s.dir, id+".json"), body); err != nil {
		return err
	}

	meta, err := json.Marshal(summarize(sess))
	if err != nil {
		return fmt.Errorf("marshal session meta %s: %w", id, err)
	}
	return writeAtomic(filepath.Join(s.dir, id+".meta.json"), meta)
}

func summarize(sess *model.AnalysisSession) model.SessionSummary {
	sum := model.SessionSummary{
		ID:           sess.ID,
		ContractID:   sess.ContractID,
		ContractName: sess.ContractName,
		Status:       sess.Status,
		Progress:     sess.Progress,
		StartedAt:    sess.StartedAt,
		FinishedAt:   sess.FinishedAt,
	}
	if sess.Status.Terminal() {
		report := model.BuildReport(sess)
		sum.OverallScore = report.OverallRiskScore
	}
	return sum
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
