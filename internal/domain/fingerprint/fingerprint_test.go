package fingerprint

import (
	"testing"
	"time"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func completedJob(updated time.Time, x float64) job.Job {
	return job.Reconstruct("jid", "ml", job.Completed{
		Vector2D:  job.Vector2D{X: x, Y: -0.5},
		Embedding: []float32{1, 0},
	}, t0, updated)
}

func TestJobTag_Deterministic(t *testing.T) {
	a := completedJob(t0, 0.25)
	b := completedJob(t0, 0.25)
	if JobTag(a) != JobTag(b) {
		t.Fatal("expected identical tags for identical state")
	}
	if len(JobTag(a)) != 64 {
		t.Errorf("expected sha256 hex, got %q", JobTag(a))
	}
}

func TestJobTag_ChangesWithState(t *testing.T) {
	base := completedJob(t0, 0.25)
	tag := JobTag(base)

	later := completedJob(t0.Add(2*time.Second), 0.25)
	if JobTag(later) == tag {
		t.Error("expected tag to change with updated_at")
	}

	moved := completedJob(t0, 0.75)
	if JobTag(moved) == tag {
		t.Error("expected tag to change with vector_x")
	}

	queued := job.Reconstruct("jid", "ml", job.Queued{}, t0, t0)
	if JobTag(queued) == tag {
		t.Error("expected tag to change with status")
	}
}

func TestJobTag_SubSecondUpdatesShareTag(t *testing.T) {
	a := job.Reconstruct("jid", "ml", job.Processing{}, t0, t0)
	b := job.Reconstruct("jid", "ml", job.Processing{}, t0, t0.Add(300*time.Millisecond))
	if JobTag(a) != JobTag(b) {
		t.Error("expected second-resolution fingerprint")
	}
}

func TestListTag(t *testing.T) {
	a := ListTag([]string{"Nature", "MIS Quarterly"}, 1, "jid")
	b := ListTag([]string{"MIS Quarterly", "Nature"}, 1, "jid")
	if a != b {
		t.Error("expected journal order not to matter")
	}
	if ListTag([]string{"Nature"}, 2, "jid") == ListTag([]string{"Nature"}, 1, "jid") {
		t.Error("expected tag to change with page")
	}
	if ListTag([]string{"Nature"}, 1, "") == ListTag([]string{"Nature"}, 1, "jid") {
		t.Error("expected tag to change with request id")
	}
}

func TestListTag_DoesNotReorderInput(t *testing.T) {
	in := []string{"b", "a"}
	_ = ListTag(in, 1, "")
	if in[0] != "b" {
		t.Error("input slice was sorted in place")
	}
}

func TestMatches(t *testing.T) {
	tag := "abc"
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc"`, true},
		{`W/"abc"`, true},
		{`"zzz", "abc"`, true},
		{`*`, true},
		{`abc`, false},
		{`"zzz"`, false},
		{``, false},
	}
	for _, tc := range tests {
		if got := Matches(tc.header, tag); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.header, got, tc.want)
		}
	}
}
