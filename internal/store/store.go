package store

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound indicates the targeted record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Record is one document held by the remote queue store. Fields carries the
// caller-supplied attributes; CreatedAt is assigned by the store at write time.
type Record struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
}

// String returns the named field as a string, or "" when absent.
func (r Record) String(key string) string {
	if v, ok := r.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the named field as an int. JSON and DynamoDB round-trips decode
// numbers as float64, so both representations are accepted.
func (r Record) Int(key string) int {
	switch v := r.Fields[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// FilterOp selects how a filter compares a field.
type FilterOp string

const (
	OpEqual FilterOp = "eq"
	OpIn    FilterOp = "in"
)

// Filter constrains one field of a query. Value is a string for OpEqual and a
// []string for OpIn.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Eq builds an equality filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// In builds a membership filter.
func In(field string, values ...string) Filter {
	return Filter{Field: field, Op: OpIn, Value: values}
}

// Query selects records within a collection. OrderBy names a field sorted
// ascending; numeric fields sort numerically, everything else as strings.
type Query struct {
	Filters []Filter
	OrderBy string
}

// SnapshotFunc receives the full ordered result set of a subscribed query.
// It is invoked once on subscribe and again after every matching change.
type SnapshotFunc func(records []Record)

// Subscription is a live watch over a query. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Client is the document store consumed by the queue platform. Writes become
// visible to matching subscriptions with at-least-once delivery; there is no
// cross-client ordering guarantee between a write and a concurrent read.
type Client interface {
	Create(ctx context.Context, collection string, fields map[string]any) (Record, error)
	Query(ctx context.Context, collection string, q Query) ([]Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, q Query, fn SnapshotFunc) (Subscription, error)
}

// Counter is an optional extension implemented by backends that can hand out
// atomically increasing sequence numbers.
type Counter interface {
	Next(ctx context.Context, name string) (int, error)
}

// Matches reports whether the record satisfies every filter of the query.
func Matches(r Record, q Query) bool {
	for _, f := range q.Filters {
		got := r.String(f.Field)
		switch f.Op {
		case OpEqual:
			want, _ := f.Value.(string)
			if got != want {
				return false
			}
		case OpIn:
			values, _ := f.Value.([]string)
			found := false
			for _, v := range values {
				if got == v {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// SortRecords orders records in place by the query's OrderBy field.
func SortRecords(records []Record, orderBy string) {
	if orderBy == "" {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		})
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, aNum := numericField(records[i], orderBy)
		b, bNum := numericField(records[j], orderBy)
		if aNum && bNum {
			return a < b
		}
		return records[i].String(orderBy) < records[j].String(orderBy)
	})
}

func numericField(r Record, key string) (float64, bool) {
	switch v := r.Fields[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Eval runs a query against an unordered record set: filter, then order.
func Eval(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	SortRecords(out, q.OrderBy)
	return out
}
