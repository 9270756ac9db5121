package params

import (
	"errors"
	"sort"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestPutGet(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("CompletedTrainingVersion", "2"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get("CompletedTrainingVersion")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "2" {
		t.Errorf("Get() = %q, want 2", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("Missing")
	if !errors.Is(err, ErrParamNotFound) {
		t.Errorf("Get() error = %v, want ErrParamNotFound", err)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("Key", "old"); err != nil {
		t.Fatal(err)
	}
	if err := store.Put("Key", "new"); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get("Key")
	if got != "new" {
		t.Errorf("Get() = %q, want new", got)
	}
}

func TestPutIfUnset(t *testing.T) {
	store := newTestStore(t)

	written, err := store.PutIfUnset("HasAcceptedTerms", "0")
	if err != nil {
		t.Fatalf("PutIfUnset() error = %v", err)
	}
	if !written {
		t.Error("PutIfUnset() = false for missing key")
	}

	written, err = store.PutIfUnset("HasAcceptedTerms", "1")
	if err != nil {
		t.Fatalf("PutIfUnset() error = %v", err)
	}
	if written {
		t.Error("PutIfUnset() = true for existing key")
	}

	got, _ := store.Get("HasAcceptedTerms")
	if got != "0" {
		t.Errorf("Get() = %q, existing value must be preserved", got)
	}
}

func TestPutIfUnsetTreatsEmptyAsUnset(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("Key", ""); err != nil {
		t.Fatal(err)
	}

	written, err := store.PutIfUnset("Key", "filled")
	if err != nil {
		t.Fatalf("PutIfUnset() error = %v", err)
	}
	if !written {
		t.Error("PutIfUnset() = false for empty value")
	}

	got, _ := store.Get("Key")
	if got != "filled" {
		t.Errorf("Get() = %q, want filled", got)
	}
}

func TestHas(t *testing.T) {
	store := newTestStore(t)

	if store.Has("Key") {
		t.Error("Has() = true for missing key")
	}
	if err := store.Put("Key", "v"); err != nil {
		t.Fatal(err)
	}
	if !store.Has("Key") {
		t.Error("Has() = false for existing key")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("Key", "v"); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("Key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Has("Key") {
		t.Error("key still present after Delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete("Key"); err != nil {
		t.Errorf("Delete() of missing key error = %v", err)
	}
}

func TestSeedDefaults(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("OpenpilotEnabledToggle", "0"); err != nil {
		t.Fatal(err)
	}

	written, err := store.SeedDefaults(map[string]string{
		"CompletedTrainingVersion": "0",
		"HasAcceptedTerms":         "0",
		"OpenpilotEnabledToggle":   "1",
	})
	if err != nil {
		t.Fatalf("SeedDefaults() error = %v", err)
	}

	sort.Strings(written)
	want := []string{"CompletedTrainingVersion", "HasAcceptedTerms"}
	if len(written) != len(want) || written[0] != want[0] || written[1] != want[1] {
		t.Errorf("SeedDefaults() written = %v, want %v", written, want)
	}

	got, _ := store.Get("OpenpilotEnabledToggle")
	if got != "0" {
		t.Errorf("existing value overwritten: %q", got)
	}
}

func TestInvalidKeys(t *testing.T) {
	store := newTestStore(t)

	invalid := []string{"", "../escape", "has space", "a/b", ".hidden", "0leading"}
	for _, key := range invalid {
		if _, err := store.Get(key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if err := store.Put(key, "v"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}
