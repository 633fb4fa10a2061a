package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ankitojha2705/marketmind/internal/domain"
	"github.com/ankitojha2705/marketmind/internal/metrics"
	"github.com/google/uuid"
)

// SnapshotStore is the persistence port for planner state. Load returns
// nil, nil when nothing was ever saved under key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Listener receives a copy of the state after every successful mutation.
type Listener func(domain.PlannerState)

type CreateCampaignInput struct {
	Name      string
	Brief     string
	Platforms []string
}

type CreateCampaignResult struct {
	Campaign domain.Campaign
	Drafts   []domain.Draft
}

// Store holds one planner's campaigns and drafts in memory, writes the whole
// state through to a SnapshotStore after each mutation and then notifies
// subscribers.
//
// Persistence failures never reach the caller: they are logged and counted,
// and the in-memory mutation stands.
type Store struct {
	key       string
	snapshots SnapshotStore
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	state domain.PlannerState
	seq   uint64 // mutations committed, guarded by mu

	// Deliveries happen in commit order: mutation n notifies only after
	// mutation n-1 has finished notifying.
	turnMu    sync.Mutex
	turn      *sync.Cond
	delivered uint64

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// NewStore loads the snapshot at key. A missing, incomplete or malformed
// snapshot yields the empty state. A failed read is returned as an error:
// starting empty there would let the next save overwrite data that still
// exists.
func NewStore(ctx context.Context, key string, snapshots SnapshotStore, logger *slog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		key:       key,
		snapshots: snapshots,
		logger:    logger.With("component", "planner_store", "key", key),
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: make(map[uint64]Listener),
	}
	s.turn = sync.NewCond(&s.turnMu)
	for _, opt := range opts {
		opt(s)
	}

	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

func (s *Store) load(ctx context.Context) (domain.PlannerState, error) {
	data, err := s.snapshots.Load(ctx, s.key)
	if err != nil {
		return domain.PlannerState{}, fmt.Errorf("load snapshot %s: %w", s.key, err)
	}

	state, ok, err := decodeSnapshot(data)
	if err != nil {
		s.logger.WarnContext(ctx, "malformed snapshot, starting empty", "error", err)
		return domain.EmptyPlannerState(), nil
	}
	if !ok {
		state = domain.EmptyPlannerState()
		s.save(ctx, state)
	}
	return state, nil
}

// decodeSnapshot reports ok=false when data is empty or lacks either of the
// two top-level keys.
func decodeSnapshot(data []byte) (domain.PlannerState, bool, error) {
	if len(data) == 0 {
		return domain.PlannerState{}, false, nil
	}

	var doc struct {
		Campaigns *[]domain.Campaign `json:"campaigns"`
		Drafts    *[]domain.Draft    `json:"drafts"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.PlannerState{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Campaigns == nil || doc.Drafts == nil {
		return domain.PlannerState{}, false, nil
	}
	return domain.PlannerState{Campaigns: *doc.Campaigns, Drafts: *doc.Drafts}, true, nil
}

func (s *Store) save(ctx context.Context, state domain.PlannerState) {
	data, err := json.Marshal(state)
	if err == nil {
		err = s.snapshots.Save(ctx, s.key, data)
	}
	if err != nil {
		metrics.SnapshotSaveFailuresTotal.Inc()
		s.logger.ErrorContext(ctx, "save snapshot", "error", err)
	}
}

// State returns a deep copy of the current state.
func (s *Store) State() domain.PlannerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// commit persists the state and returns the copy listeners should see along
// with its sequence number. It must be called with s.mu held.
func (s *Store) commit(ctx context.Context, op string) (domain.PlannerState, uint64) {
	s.save(ctx, s.state)
	metrics.PlannerMutationsTotal.WithLabelValues(op).Inc()
	s.seq++
	return s.state.Clone(), s.seq
}

// notify runs every listener synchronously, once mutation seq-1 has been
// delivered. It is called after s.mu is released so a listener may read the
// store. A listener must not mutate the store it is subscribed to: the
// nested mutation would wait for its own caller's delivery.
func (s *Store) notify(snapshot domain.PlannerState, seq uint64) {
	s.turnMu.Lock()
	for s.delivered != seq-1 {
		s.turn.Wait()
	}
	s.turnMu.Unlock()

	defer func() {
		s.turnMu.Lock()
		s.delivered = seq
		s.turn.Broadcast()
		s.turnMu.Unlock()
	}()

	s.listenersMu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snapshot.Clone())
	}
}

// CreateCampaign appends a new campaign and one draft per platform. Input is
// not validated here.
func (s *Store) CreateCampaign(ctx context.Context, in CreateCampaignInput) CreateCampaignResult {
	s.mu.Lock()
	now := s.now().UTC()
	campaign := domain.Campaign{
		ID:        s.newID(),
		Name:      in.Name,
		Brief:     in.Brief,
		Platforms: append([]string{}, in.Platforms...),
		CreatedAt: now,
	}
	drafts := DeriveDrafts(campaign.ID, in.Name, in.Brief, in.Platforms, now, s.newID)

	s.state.Campaigns = append(s.state.Campaigns, campaign)
	s.state.Drafts = append(s.state.Drafts, drafts...)
	snapshot, seq := s.commit(ctx, "create_campaign")
	s.mu.Unlock()

	s.notify(snapshot, seq)

	// campaign and drafts share slices with s.state; hand out copies.
	return CreateCampaignResult{
		Campaign: cloneCampaign(campaign),
		Drafts:   cloneDrafts(drafts),
	}
}

// ScheduleDraft marks draft id as scheduled for at. Returns
// domain.ErrDraftNotFound, without touching state, when no such draft exists.
func (s *Store) ScheduleDraft(ctx context.Context, id string, at time.Time) (domain.Draft, error) {
	at = at.UTC()
	return s.updateDraft(ctx, id, "schedule_draft", func(d *domain.Draft) {
		d.Status = domain.DraftStatusScheduled
		d.ScheduledAt = &at
	})
}

// UnscheduleDraft reverts draft id to an unscheduled draft.
func (s *Store) UnscheduleDraft(ctx context.Context, id string) (domain.Draft, error) {
	return s.updateDraft(ctx, id, "unschedule_draft", func(d *domain.Draft) {
		d.Status = domain.DraftStatusDraft
		d.ScheduledAt = nil
	})
}

func (s *Store) updateDraft(ctx context.Context, id, op string, mutate func(*domain.Draft)) (domain.Draft, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.state.Drafts {
		if s.state.Drafts[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return domain.Draft{}, domain.ErrDraftNotFound
	}

	mutate(&s.state.Drafts[idx])
	snapshot, seq := s.commit(ctx, op)
	s.mu.Unlock()

	s.notify(snapshot, seq)
	return snapshot.Drafts[idx], nil
}

// ResetAll drops every campaign and draft.
func (s *Store) ResetAll(ctx context.Context) {
	s.mu.Lock()
	s.state = domain.EmptyPlannerState()
	snapshot, seq := s.commit(ctx, "reset")
	s.mu.Unlock()

	s.notify(snapshot, seq)
}

func (s *Store) Campaigns() []domain.Campaign {
	return s.State().Campaigns
}

// Drafts returns the drafts still waiting to be scheduled.
func (s *Store) Drafts() []domain.Draft {
	return s.filter(domain.DraftStatusDraft)
}

// Scheduled returns scheduled drafts, earliest first.
func (s *Store) Scheduled() []domain.Draft {
	drafts := s.filter(domain.DraftStatusScheduled)
	SortByScheduledAt(drafts)
	return drafts
}

func (s *Store) filter(status domain.DraftStatus) []domain.Draft {
	out := []domain.Draft{}
	for _, d := range s.State().Drafts {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

func cloneCampaign(c domain.Campaign) domain.Campaign {
	c.Platforms = append([]string{}, c.Platforms...)
	return c
}

func cloneDrafts(drafts []domain.Draft) []domain.Draft {
	return domain.PlannerState{Drafts: drafts}.Clone().Drafts
}
