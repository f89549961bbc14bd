package session

import (
	"context"
	"testing"
	"time"

	"github.com/local/paintscheme/internal/pipeline"
)

func TestMemoryCreateGet(t *testing.T) {
	s := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	sess, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Stage != StageCreated {
		t.Errorf("new session stage = %s, want %s", sess.Stage, StageCreated)
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Get returned id %s, want %s", got.ID, sess.ID)
	}
}

func TestMemoryGetUnknown(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	_, err := s.Get(context.Background(), "no-such-session")
	if !pipeline.IsKind(err, pipeline.KindSessionNotFound) {
		t.Errorf("got %v, want SessionNotFound", err)
	}
}

func TestMemorySaveRoundtrip(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()

	sess, _ := s.Create(ctx)
	sess.Stage = StageExtracted
	sess.ExtractedRefs = []string{sess.ID + "/extracted/page_001.png"}
	if err := s.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != StageExtracted || len(got.ExtractedRefs) != 1 {
		t.Errorf("got stage=%s refs=%v, want extracted with one ref", got.Stage, got.ExtractedRefs)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	s := NewMemoryStore(30 * time.Minute)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	sess, _ := s.Create(ctx)

	// Accessing just before expiry refreshes the deadline.
	now = now.Add(29 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	now = now.Add(29 * time.Minute)
	if _, err := s.Get(ctx, sess.ID); err != nil {
		t.Fatalf("Get after refresh: %v", err)
	}

	// Idle past the TTL: gone.
	now = now.Add(31 * time.Minute)
	_, err := s.Get(ctx, sess.ID)
	if !pipeline.IsKind(err, pipeline.KindSessionNotFound) {
		t.Errorf("got %v, want SessionNotFound after TTL", err)
	}
}

func TestMemorySweepReportsExpired(t *testing.T) {
	s := NewMemoryStore(10 * time.Minute)
	ctx := context.Background()

	now := time.Now()
	s.now = func() time.Time { return now }

	sess, _ := s.Create(ctx)
	now = now.Add(11 * time.Minute)

	var swept []string
	s.Sweep(ctx, func(_ context.Context, id string) { swept = append(swept, id) })
	if len(swept) != 1 || swept[0] != sess.ID {
		t.Errorf("swept = %v, want [%s]", swept, sess.ID)
	}
}

func TestStageOrdering(t *testing.T) {
	tests := []struct {
		s, o Stage
		want bool
	}{
		{StageCreated, StageExtracted, false},
		{StageExtracted, StageExtracted, true},
		{StagePreviewed, StageExtracted, true},
		{StageColorized, StagePreviewed, true},
		{StageExtracted, StagePreviewed, false},
	}
	for _, tt := range tests {
		if got := tt.s.AtLeast(tt.o); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.s, tt.o, got, tt.want)
		}
	}
	if StageColorized.Advance(StagePreviewed) != StageColorized {
		t.Error("Advance regressed a later stage")
	}
	if StageCreated.Advance(StageExtracted) != StageExtracted {
		t.Error("Advance did not move forward")
	}
}

func TestSessionOwns(t *testing.T) {
	sess := &Session{
		ID:            "abc",
		ExtractedRefs: []string{"abc/extracted/page_001.png"},
		PreviewRef:    "abc/preview/clustered_preview.png",
		ColorizedRefs: []string{"abc/colorized/page_001.png"},
	}
	for _, ref := range []string{
		"abc/extracted/page_001.png",
		"abc/preview/clustered_preview.png",
		"abc/colorized/page_001.png",
	} {
		if !sess.Owns(ref) {
			t.Errorf("Owns(%q) = false, want true", ref)
		}
	}
	if sess.Owns("other/extracted/page_001.png") {
		t.Error("Owns accepted a foreign ref")
	}
	if sess.Owns("") {
		t.Error("Owns accepted empty ref")
	}
}
