package biblstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specmark/specmark/core/biblio"
	"github.com/specmark/specmark/core/errors"
)

func sampleSnapshot(location string) *biblio.Snapshot {
	return &biblio.Snapshot{
		Location:  location,
		SessionID: "s-1",
		Entries: []*biblio.Entry{
			{Kind: biblio.Term, ID: "t-widget", Namespace: biblio.GlobalNamespace, Key: "widget"},
			{Kind: biblio.Clause, ID: "sec-intro", Namespace: biblio.GlobalNamespace, Key: "sec-intro", Number: "1", Title: "Intro"},
		},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "biblio.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	want := sampleSnapshot("https://example.org/widgets/")
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Load(ctx, want.Location)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "biblio.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	snap := sampleSnapshot("loc")
	if err := store.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.SessionID = "s-2"
	snap.Entries = snap.Entries[:1]
	if err := store.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "loc")
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "s-2" || len(got.Entries) != 1 {
		t.Errorf("upsert did not replace: %+v", got)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "biblio.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.Load(context.Background(), "nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	for _, name := range []string{"snap.json", "snap.json.xz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			want := sampleSnapshot("loc")
			if err := WriteFile(path, want); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("snapshot (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadAny(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "biblio.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, sampleSnapshot("a")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, sampleSnapshot("b")); err != nil {
		t.Fatal(err)
	}
	store.Close()

	snaps, err := ReadAny(ctx, dbPath)
	if err != nil {
		t.Fatalf("ReadAny(db): %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("got %d snapshots from db, want 2", len(snaps))
	}

	jsonPath := filepath.Join(dir, "snap.json")
	if err := WriteFile(jsonPath, sampleSnapshot("c")); err != nil {
		t.Fatal(err)
	}
	snaps, err = ReadAny(ctx, jsonPath)
	if err != nil {
		t.Fatalf("ReadAny(json): %v", err)
	}
	if len(snaps) != 1 || snaps[0].Location != "c" {
		t.Errorf("json snapshots = %+v", snaps)
	}
}
