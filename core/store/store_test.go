package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gopml/gopml/core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &Record{
		Name:     "WP254",
		Title:    "Apoptosis",
		Organism: "Homo sapiens",
		Format:   "GPML2021",
		Hash:     "abc123",
		Data:     []byte("<Pathway/>"),
	}
	created, err := s.Put(ctx, rec)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !created {
		t.Error("Put reported update for a new record")
	}
	if rec.ID == "" {
		t.Error("Put did not assign an id")
	}

	got, err := s.Get(ctx, "WP254")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != rec.ID || got.Title != "Apoptosis" || got.Hash != "abc123" {
		t.Errorf("Get = %+v", got)
	}
	if string(got.Data) != "<Pathway/>" {
		t.Errorf("Data = %q", got.Data)
	}
}

func TestPutUpdateKeepsIdentity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := &Record{Name: "WP1", Hash: "h1", Data: []byte("v1")}
	if _, err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	firstID := rec.ID

	updated := &Record{Name: "WP1", Title: "Renamed", Hash: "h2", Data: []byte("v2")}
	created, err := s.Put(ctx, updated)
	if err != nil {
		t.Fatalf("Put update: %v", err)
	}
	if created {
		t.Error("Put reported create for an existing record")
	}
	if updated.ID != firstID {
		t.Errorf("update changed id: %s -> %s", firstID, updated.ID)
	}

	got, err := s.Get(ctx, "WP1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Hash != "h2" || got.Title != "Renamed" {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.CreatedAt.After(got.UpdatedAt) {
		t.Error("created_at after updated_at")
	}
}

func TestPutValidation(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Put(context.Background(), &Record{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Put without name: err = %v, want ErrInvalidInput", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "nope" {
		t.Errorf("err = %v, want NotFoundError for nope", err)
	}
}

func TestListAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"WP3", "WP1", "WP2"} {
		if _, err := s.Put(ctx, &Record{Name: name, Hash: "h", Data: []byte("x")}); err != nil {
			t.Fatalf("Put %s: %v", name, err)
		}
	}

	names, err := s.ListNames(ctx)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}
	want := []string{"WP1", "WP2", "WP3"}
	if len(names) != len(want) {
		t.Fatalf("ListNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("List returned %d records", len(recs))
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestFindByHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, &Record{Name: "WP1", Hash: "same", Data: []byte("a")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, &Record{Name: "WP2", Hash: "same", Data: []byte("b")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, &Record{Name: "WP3", Hash: "other", Data: []byte("c")}); err != nil {
		t.Fatal(err)
	}

	recs, err := s.FindByHash(ctx, "same")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("FindByHash returned %d records, want 2", len(recs))
	}
	if recs[0].Name != "WP1" || recs[1].Name != "WP2" {
		t.Errorf("FindByHash order = %s, %s", recs[0].Name, recs[1].Name)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, &Record{Name: "WP1", Hash: "h", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "WP1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "WP1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("record survived delete: %v", err)
	}
	if err := s.Delete(ctx, "WP1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestDriverInfo(t *testing.T) {
	info := GetInfo()
	if info.DriverName != DriverName() || info.DriverType != DriverType() {
		t.Errorf("GetInfo = %+v", info)
	}
	if info.DriverType != "purego" && info.DriverType != "cgo" {
		t.Errorf("DriverType = %q", info.DriverType)
	}
}
