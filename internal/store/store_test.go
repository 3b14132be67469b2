package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"reelforge/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	scenes := []*domain.Scene{
		{
			ID:                0,
			Title:             "Hook",
			Narration:         "It starts here.",
			VisualDescription: "a storm front",
			DurationHint:      4,
			Image:             []byte{0xFF, 0xD8, 0x01},
			AudioEncoded:      []byte("RIFF..."),
			Audio:             &domain.AudioBuffer{PCM: []byte{1, 2, 3}, SampleRate: 8000, Duration: 2},
			ActualDuration:    2,
		},
		{ID: 1, Title: "Body", Narration: "Then this."},
	}

	if err := s.Save(ctx, "storms", scenes); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	snap, found, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !found {
		t.Fatalf("expected a snapshot")
	}
	if snap.Topic != "storms" {
		t.Fatalf("topic = %q, want storms", snap.Topic)
	}
	if len(snap.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(snap.Scenes))
	}
	got := snap.Scenes[0]
	if got.ID != 0 || got.Title != "Hook" || !bytes.Equal(got.Image, scenes[0].Image) {
		t.Fatalf("scene 0 mismatch: %+v", got)
	}
	if !bytes.Equal(got.AudioEncoded, scenes[0].AudioEncoded) {
		t.Fatalf("encoded audio not persisted")
	}
	if got.Audio != nil {
		t.Fatalf("decoded audio buffer must not survive serialization")
	}
	if got.ActualDuration != 2 {
		t.Fatalf("actual duration should persist, got %f", got.ActualDuration)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "first", []*domain.Scene{{ID: 0}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "second", []*domain.Scene{{ID: 0}, {ID: 1}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, found, err := s.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load: found=%t err=%v", found, err)
	}
	if snap.Topic != "second" || len(snap.Scenes) != 2 {
		t.Fatalf("snapshot not overwritten: %+v", snap)
	}
}

func TestLoadEmpty(t *testing.T) {
	s := openTestStore(t)
	snap, found, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if found || snap != nil {
		t.Fatalf("expected no snapshot, got %+v", snap)
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "topic", []*domain.Scene{{ID: 0}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, found, _ := s.Load(ctx); found {
		t.Fatalf("snapshot should be gone after Clear")
	}
	// Clearing an empty store is fine.
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear on empty store: %v", err)
	}
}
