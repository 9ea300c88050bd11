package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/okian/codevoice/internal/domain/model"
)

// MemoryStore is an in-process Store. It is the default driver and backs tests.
//
// Transactions are serialized by txMu; writes apply immediately and are not
// rolled back on error.
type MemoryStore struct {
	opts options

	txMu sync.Mutex
	mu   sync.RWMutex

	questions  map[string]model.Question
	candidates map[string]model.Candidate
	sessions   map[string]model.Session
	turns      map[string][]model.Turn // by session id, append order
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:       newOptions(opts),
		questions:  make(map[string]model.Question),
		candidates: make(map[string]model.Candidate),
		sessions:   make(map[string]model.Session),
		turns:      make(map[string][]model.Turn),
	}
}

func (s *MemoryStore) CreateQuestion(_ context.Context, q *model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return ErrDuplicate
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.opts.now()
	}
	s.questions[q.ID] = *q
	return nil
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return ErrNotFound
	}
	delete(s.questions, id)
	for sid, turns := range s.turns {
		for i := range turns {
			if turns[i].QuestionID != nil && *turns[i].QuestionID == id {
				turns[i].QuestionID = nil
			}
		}
		s.turns[sid] = turns
	}
	return nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, f QuestionFilter) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic := strings.ToLower(strings.TrimSpace(f.Topic))
	out := make([]model.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if f.Difficulty != "" && q.Difficulty != f.Difficulty {
			continue
		}
		if topic != "" && !strings.Contains(strings.ToLower(q.Topic), topic) {
			continue
		}
		if slices.Contains(f.Exclude, q.ID) {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CountQuestions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.questions)), nil
}

func (s *MemoryStore) CreateCandidate(_ context.Context, c *model.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[c.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.candidates {
		if existing.Username == c.Username {
			return ErrDuplicate
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.opts.now()
	}
	s.candidates[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetCandidate(_ context.Context, id string) (model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return model.Candidate{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) FindCandidateByUsername(_ context.Context, username string) (model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.candidates {
		if c.Username == username {
			return c, nil
		}
	}
	return model.Candidate{}, ErrNotFound
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[sess.CandidateID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.sessions[sess.ID]; ok {
		return ErrDuplicate
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = s.opts.now()
	}
	stored := *sess
	stored.Turns = nil
	stored.Candidate = nil
	s.sessions[sess.ID] = stored
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

// LockSession is GetSession; txMu already serializes transactions.
func (s *MemoryStore) LockSession(ctx context.Context, id string) (model.Session, error) {
	return s.GetSession(ctx, id)
}

func (s *MemoryStore) UpdateSession(_ context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	stored := *sess
	stored.Turns = nil
	stored.Candidate = nil
	s.sessions[sess.ID] = stored
	return nil
}

func (s *MemoryStore) AppendTurn(_ context.Context, t *model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[t.SessionID]; !ok {
		return ErrNotFound
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.opts.now()
	}
	stored := *t
	stored.Question = nil
	s.turns[t.SessionID] = append(s.turns[t.SessionID], stored)
	return nil
}

func (s *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	out := slices.Clone(s.turns[sessionID])
	sortTurns(out)
	return out, nil
}

func (s *MemoryStore) Transact(_ context.Context, fn func(tx Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

// sortTurns orders by CreatedAt, then Seq.
func sortTurns(turns []model.Turn) {
	sort.SliceStable(turns, func(i, j int) bool {
		if turns[i].CreatedAt.Equal(turns[j].CreatedAt) {
			return turns[i].Seq < turns[j].Seq
		}
		return turns[i].CreatedAt.Before(turns[j].CreatedAt)
	})
}
