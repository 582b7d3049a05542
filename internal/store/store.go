// Package store is the boundary to the external record store that owns
// participant records. It carries no business logic.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"luckyenvelope/internal/models"
)

// Field names as they appear in the record store.
const (
	FieldID        = "Id"
	FieldCode      = "random_code"
	FieldStatus    = "status"
	FieldPrizeName = "prize"
	FieldPrizeID   = "prize_id"
)

// ErrNotFound is returned by Patch when no record carries the id.
var ErrNotFound = errors.New("store: record not found")

// Filter is a field-equality condition.
type Filter struct {
	Field string
	Value string
}

// Eq builds a Filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// String renders the filter in the store's where syntax.
func (f Filter) String() string {
	return fmt.Sprintf("(%s,eq,%s)", f.Field, f.Value)
}

// Query selects records matching every filter. Limit caps the returned
// records, not the reported total.
type Query struct {
	Where []Filter
	Limit int
}

// WhereClause joins the filters in the store's where syntax.
func (q Query) WhereClause() string {
	parts := make([]string, len(q.Where))
	for i, f := range q.Where {
		parts[i] = f.String()
	}
	return strings.Join(parts, "~and")
}

// Page is a query result. Total is the number of matching records
// regardless of Limit.
type Page struct {
	Records []models.Participant
	Total   int
}

// Fields is a partial update. Keys absent from the map are left unchanged;
// a nil value clears the field.
type Fields map[string]any

// Client is the record store.
type Client interface {
	List(ctx context.Context, q Query) (Page, error)
	Patch(ctx context.Context, id int64, fields Fields) error
}

// Inviter is implemented by stores that can create participant records.
type Inviter interface {
	Invite(ctx context.Context, code string) error
}

// FindByCode returns the record for code, or nil when none exists.
func FindByCode(ctx context.Context, c Client, code string) (*models.Participant, error) {
	page, err := c.List(ctx, Query{Where: []Filter{Eq(FieldCode, code)}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(page.Records) == 0 {
		return nil, nil
	}
	rec := page.Records[0]
	return &rec, nil
}

// Count returns the number of records with field equal to value.
func Count(ctx context.Context, c Client, field, value string) (int, error) {
	page, err := c.List(ctx, Query{Where: []Filter{Eq(field, value)}, Limit: 1})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}
