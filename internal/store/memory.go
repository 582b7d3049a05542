package store

import (
	"context"
	"fmt"
	"sync"

	"luckyenvelope/internal/models"
)

// Memory is an in-process Client. It backs the memory driver and tests.
type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]*models.Participant
	order   []int64
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]*models.Participant)}
}

// Invite adds an INVITED record for code. Inviting an existing code is a no-op.
func (m *Memory) Invite(_ context.Context, code string) error {
	_, err := m.Put(models.Participant{Code: code, Status: models.StatusInvited})
	return err
}

// Put inserts a record with the given state and returns its id.
func (m *Memory) Put(p models.Participant) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		if m.records[id].Code == p.Code {
			return id, nil
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.records[p.ID] = &p
	m.order = append(m.order, p.ID)
	return p.ID, nil
}

// Get returns a copy of the record for code.
func (m *Memory) Get(code string) (models.Participant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if r := m.records[id]; r.Code == code {
			return *r, true
		}
	}
	return models.Participant{}, false
}

// List implements Client.
func (m *Memory) List(ctx context.Context, q Query) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var page Page
	for _, id := range m.order {
		r := m.records[id]
		if !matches(r, q.Where) {
			continue
		}
		page.Total++
		if q.Limit <= 0 || len(page.Records) < q.Limit {
			page.Records = append(page.Records, *r)
		}
	}
	return page, nil
}

// Patch implements Client.
func (m *Memory) Patch(ctx context.Context, id int64, fields Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	next := *r
	for k, v := range fields {
		switch k {
		case FieldStatus:
			s, err := stringField(k, v)
			if err != nil {
				return err
			}
			if s != nil {
				next.Status = models.Status(*s)
			}
		case FieldPrizeName:
			s, err := stringField(k, v)
			if err != nil {
				return err
			}
			next.PrizeName = s
		case FieldPrizeID:
			s, err := stringField(k, v)
			if err != nil {
				return err
			}
			next.PrizeID = s
		default:
			return fmt.Errorf("store: unknown field %q", k)
		}
	}
	*r = next
	return nil
}

func matches(r *models.Participant, where []Filter) bool {
	for _, f := range where {
		v, ok := fieldValue(r, f.Field)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

func fieldValue(r *models.Participant, field string) (string, bool) {
	switch field {
	case FieldID:
		return fmt.Sprint(r.ID), true
	case FieldCode:
		return r.Code, true
	case FieldStatus:
		return string(r.Status), true
	case FieldPrizeName:
		if r.PrizeName == nil {
			return "", false
		}
		return *r.PrizeName, true
	case FieldPrizeID:
		if r.PrizeID == nil {
			return "", false
		}
		return *r.PrizeID, true
	}
	return "", false
}

func stringField(name string, v any) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &t, nil
	case models.Status:
		s := string(t)
		return &s, nil
	}
	return nil, fmt.Errorf("store: field %q: unsupported value %T", name, v)
}
