package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/logger"
	"golang.org/x/sync/singleflight"

	"luckyenvelope/internal/metrics"
	"luckyenvelope/internal/models"
	"luckyenvelope/internal/store"
)

// Options tunes an EnvelopeService. The zero value is usable.
// Seed fixes the selector's random source; zero seeds from the clock.
type Options struct {
	CacheTTL time.Duration
	Seed     int64
	Metrics  *metrics.Metrics
}

// EnvelopeService validates participant status transitions and hands out
// the rationed prize pool. Construct one per process and share it.
type EnvelopeService struct {
	store   store.Client
	prizes  []models.Prize
	byID    map[string]models.Prize
	metrics *metrics.Metrics

	gate       *CodeGate
	cache      *PrizeCache
	selector   *Selector
	serializer *Serializer
	lookups    singleflight.Group
}

// NewEnvelopeService creates and initializes an EnvelopeService. prizes is
// the catalog in selection order.
func NewEnvelopeService(st store.Client, prizes []models.Prize, opts Options) *EnvelopeService {
	byID := make(map[string]models.Prize, len(prizes))
	for _, p := range prizes {
		byID[p.ID] = p
	}
	cache := NewPrizeCache(st, prizes, opts.CacheTTL)
	cache.metrics = opts.Metrics
	return &EnvelopeService{
		store:      st,
		prizes:     prizes,
		byID:       byID,
		metrics:    opts.Metrics,
		gate:       &CodeGate{},
		cache:      cache,
		selector:   NewSelector(opts.Seed),
		serializer: NewSerializer(),
	}
}

// Close stops the allocation worker.
func (s *EnvelopeService) Close() {
	s.serializer.Close()
}

// ParseTarget maps a requested status onto a transition target. Anything
// other than OPENNING asks for a prize.
func ParseTarget(requested string) models.Status {
	if models.Status(requested) == models.StatusOpenning {
		return models.StatusOpenning
	}
	return models.StatusPlayer
}

type action int

const (
	actReject action = iota
	actOpen
	actStayOpen
	actReplay
	actAllocate
)

func nextAction(current, target models.Status) action {
	switch target {
	case models.StatusOpenning:
		switch current {
		case models.StatusInvited:
			return actOpen
		case models.StatusOpenning:
			return actStayOpen
		}
	case models.StatusPlayer:
		switch current {
		case models.StatusPlayer:
			return actReplay
		case models.StatusInvited, models.StatusOpenning:
			return actAllocate
		}
	}
	return actReject
}

// Check reports whether code exists and where it is in its lifecycle.
// Concurrent checks for the same code share one lookup.
func (s *EnvelopeService) Check(ctx context.Context, code string) (*models.CheckResult, error) {
	if !models.ValidCode(code) {
		return nil, ErrValidation
	}
	// The shared lookup outlives any single caller.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.lookups.Do(code, func() (any, error) {
		return store.FindByCode(shared, s.store, code)
	})
	if err != nil {
		s.metrics.StoreError("find")
		logger.Errorf("Error looking up %s: %v", code, err)
		return nil, storeError("find", err)
	}
	rec := v.(*models.Participant)
	if rec == nil {
		return &models.CheckResult{Valid: false}, nil
	}
	res := &models.CheckResult{Valid: true, Status: rec.Status}
	if id, name, ok := rec.GrantedPrize(); ok {
		res.PrizeID, res.Prize = id, name
	}
	return res, nil
}

// UpdateStatus moves code towards requested (OPENNING or PLAYER). Reaching
// PLAYER allocates a prize exactly once; later requests replay it.
func (s *EnvelopeService) UpdateStatus(ctx context.Context, code, requested string) (res *models.UpdateResult, err error) {
	defer func() { s.metrics.Update(resultLabel(res, err)) }()

	if !models.ValidCode(code) {
		return nil, ErrValidation
	}
	if !s.gate.Acquire(code) {
		return nil, ErrBusy
	}
	defer s.gate.Release(code)

	// Past the gate a request runs to completion.
	ctx = context.WithoutCancel(ctx)

	rec, err := store.FindByCode(ctx, s.store, code)
	if err != nil {
		s.metrics.StoreError("find")
		logger.Errorf("Error looking up %s: %v", code, err)
		return nil, storeError("find", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}

	switch nextAction(rec.Status, ParseTarget(requested)) {
	case actStayOpen:
		return &models.UpdateResult{Success: true, Status: models.StatusOpenning}, nil

	case actOpen:
		if err := s.store.Patch(ctx, rec.ID, store.Fields{store.FieldStatus: models.StatusOpenning}); err != nil {
			s.metrics.StoreError("patch")
			logger.Errorf("Error opening %s: %v", code, err)
			return nil, storeError("patch", err)
		}
		return &models.UpdateResult{Success: true, Status: models.StatusOpenning}, nil

	case actReplay:
		id, name, _ := rec.GrantedPrize()
		return &models.UpdateResult{
			Success:    true,
			Status:     models.StatusPlayer,
			Prize:      name,
			PrizeID:    id,
			IsExisting: true,
		}, nil

	case actAllocate:
		prize, err := s.allocate(ctx, rec)
		if err != nil {
			if !errors.Is(err, ErrOutOfStock) {
				logger.Errorf("Allocation for %s failed: %v", code, err)
			}
			return nil, err
		}
		logger.Infof("User %s won %s (%s)", code, prize.ID, prize.Name)
		return &models.UpdateResult{
			Success: true,
			Status:  models.StatusPlayer,
			Prize:   prize.Name,
			PrizeID: prize.ID,
		}, nil
	}

	conflict := &ConflictError{Current: rec.Status}
	if rec.Status == models.StatusPlayer {
		conflict.PrizeID, conflict.PrizeName, _ = rec.GrantedPrize()
	}
	return nil, conflict
}

// allocate runs the read-check-write sequence for one participant inside
// the serializer: fresh counts, weighted pick, commit, local bump.
func (s *EnvelopeService) allocate(ctx context.Context, rec *models.Participant) (models.Prize, error) {
	defer s.metrics.AllocationDone(time.Now())

	var won models.Prize
	err := s.serializer.Do(func() error {
		s.cache.Invalidate()
		remaining := s.remaining(s.cache.Get(ctx))
		for id, n := range remaining {
			s.metrics.Remaining(id, n)
		}

		id, ok := s.selector.Pick(s.prizes, remaining)
		if !ok {
			return ErrOutOfStock
		}
		prize := s.byID[id]

		err := s.store.Patch(ctx, rec.ID, store.Fields{
			store.FieldStatus:    models.StatusPlayer,
			store.FieldPrizeID:   prize.ID,
			store.FieldPrizeName: prize.Name,
		})
		if err != nil {
			s.metrics.StoreError("patch")
			return storeError("patch", err)
		}

		s.cache.Bump(id)
		s.metrics.Allocated(id)
		s.metrics.Remaining(id, remaining[id]-1)
		won = prize
		return nil
	})
	return won, err
}

func (s *EnvelopeService) remaining(granted map[string]int) map[string]int {
	out := make(map[string]int, len(s.prizes))
	for _, p := range s.prizes {
		out[p.ID] = max(0, p.Limit-granted[p.ID])
	}
	return out
}

// Inventory reports stock per prize straight from the store. It does not
// touch the allocation cache. Unlike allocation it fails when any count
// query fails.
func (s *EnvelopeService) Inventory(ctx context.Context) ([]models.PrizeStock, error) {
	granted, err := s.cache.Fetch(ctx)
	if err != nil {
		return nil, storeError("count", err)
	}
	out := make([]models.PrizeStock, 0, len(s.prizes))
	for _, p := range s.prizes {
		out = append(out, models.PrizeStock{
			Prize:     p,
			Granted:   granted[p.ID],
			Remaining: max(0, p.Limit-granted[p.ID]),
		})
	}
	return out, nil
}

// Reset returns code to INVITED and clears its prize. It holds this
// process's gate for code, so it only excludes updates running in the same
// process; envelopectl and the server do not share a gate.
func (s *EnvelopeService) Reset(ctx context.Context, code string) error {
	if !models.ValidCode(code) {
		return ErrValidation
	}
	if !s.gate.Acquire(code) {
		return ErrBusy
	}
	defer s.gate.Release(code)

	rec, err := store.FindByCode(ctx, s.store, code)
	if err != nil {
		return storeError("find", err)
	}
	if rec == nil {
		return ErrNotFound
	}
	err = s.store.Patch(ctx, rec.ID, store.Fields{
		store.FieldStatus:    models.StatusInvited,
		store.FieldPrizeID:   nil,
		store.FieldPrizeName: nil,
	})
	if err != nil {
		return storeError("patch", err)
	}
	logger.Infof("Reset %s (Id %d) to %s", code, rec.ID, models.StatusInvited)
	return nil
}

func resultLabel(res *models.UpdateResult, err error) string {
	switch {
	case err == nil && res != nil && res.IsExisting:
		return "replay"
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	}
	return "store_error"
}
