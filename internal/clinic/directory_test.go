package clinic

import (
	"context"
	"errors"
	"testing"

	"github.com/Lubabaloboqwana6/clinicconnect-platform/internal/store"
)

func TestDirectoryAddAndGet(t *testing.T) {
	d := NewDirectory(store.NewMemory())
	ctx := context.Background()

	added, err := d.Add(ctx, Clinic{Name: "Soweto Community Clinic", Specialty: "General Practice"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID == "" {
		t.Fatal("clinic has no id")
	}

	got, err := d.Get(ctx, added.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Soweto Community Clinic" {
		t.Errorf("name = %q", got.Name)
	}

	if _, err := d.Get(ctx, "missing"); !errors.Is(err, ErrClinicNotFound) {
		t.Errorf("get missing: got %v, want ErrClinicNotFound", err)
	}
}

func TestDirectoryListOrdersByName(t *testing.T) {
	d := NewDirectory(store.NewMemory())
	ctx := context.Background()

	for _, name := range []string{"Zola Clinic", "Alexandra Day Clinic", "Hillbrow Health Centre"} {
		if _, err := d.Add(ctx, Clinic{Name: name}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	clinics, err := d.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Alexandra Day Clinic", "Hillbrow Health Centre", "Zola Clinic"}
	for i, w := range want {
		if clinics[i].Name != w {
			t.Errorf("clinics[%d] = %q, want %q", i, clinics[i].Name, w)
		}
	}
}

func TestDirectorySearch(t *testing.T) {
	d := NewDirectory(store.NewMemory())
	ctx := context.Background()

	_, _ = d.Add(ctx, Clinic{Name: "Alexandra Day Clinic", Specialty: "Pediatrics"})
	_, _ = d.Add(ctx, Clinic{Name: "Hillbrow Health Centre", Specialty: "Family Medicine"})

	byName, err := d.Search(ctx, "alexandra")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Alexandra Day Clinic" {
		t.Errorf("search by name = %+v", byName)
	}

	bySpecialty, _ := d.Search(ctx, "FAMILY")
	if len(bySpecialty) != 1 || bySpecialty[0].Specialty != "Family Medicine" {
		t.Errorf("search by specialty = %+v", bySpecialty)
	}

	all, _ := d.Search(ctx, "  ")
	if len(all) != 2 {
		t.Errorf("blank search = %d results, want 2", len(all))
	}

	none, _ := d.Search(ctx, "dermatology")
	if len(none) != 0 {
		t.Errorf("no-match search = %+v", none)
	}
}
