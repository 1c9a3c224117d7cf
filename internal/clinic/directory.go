package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

// Directory reads and writes clinic records on the document store.
type Directory struct {
	store store.Client
}

// NewDirectory creates a clinic directory repository.
func NewDirectory(st store.Client) *Directory {
	if st == nil {
		panic("clinic: store client required")
	}
	return &Directory{store: st}
}

// Add registers a clinic and returns it with its assigned id.
func (d *Directory) Add(ctx context.Context, c Clinic) (Clinic, error) {
	rec, err := d.store.Create(ctx, Collection, toFields(c))
	if err != nil {
		return Clinic{}, fmt.Errorf("clinic: add: %w", err)
	}
	c.ID = rec.ID
	return c, nil
}

// Get fetches one clinic by id.
func (d *Directory) Get(ctx context.Context, id string) (Clinic, error) {
	records, err := d.store.Query(ctx, Collection, store.Query{})
	if err != nil {
		return Clinic{}, fmt.Errorf("clinic: get: %w", err)
	}
	for _, r := range records {
		if r.ID == id {
			return fromRecord(r), nil
		}
	}
	return Clinic{}, ErrClinicNotFound
}

// List returns every clinic ordered by name.
func (d *Directory) List(ctx context.Context) ([]Clinic, error) {
	records, err := d.store.Query(ctx, Collection, store.Query{OrderBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("clinic: list: %w", err)
	}
	clinics := make([]Clinic, 0, len(records))
	for _, r := range records {
		clinics = append(clinics, fromRecord(r))
	}
	return clinics, nil
}

// Search returns clinics whose name or specialty contains the term,
// case-insensitively. An empty term lists everything.
func (d *Directory) Search(ctx context.Context, term string) ([]Clinic, error) {
	clinics, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return clinics, nil
	}
	matched := clinics[:0]
	for _, c := range clinics {
		if strings.Contains(strings.ToLower(c.Name), term) || strings.Contains(strings.ToLower(c.Specialty), term) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}
