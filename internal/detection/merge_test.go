package detection

import (
	"math"
	"testing"
)

func TestMerge_Default(t *testing.T) {
	a := List{det(t, "car", 0.9, 0, 0, 10, 10)}
	b := List{det(t, "car", 0.8, 1, 1, 11, 11)}

	got := Merge(a, b)

	want := List{det(t, "car", 0.85, 0.5, 0.5, 10.5, 10.5)}
	if diff := diffLists(want, got); diff != "" {
		t.Errorf("Merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_EmptyInputs(t *testing.T) {
	got := Merge(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty list, got %#v", got)
	}
}

func TestMerger_Counts(t *testing.T) {
	m, err := NewMerger(DefaultMergeOptions())
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}

	primary := List{
		det(t, "car", 0.9, 0, 0, 10, 10),       // merges with secondary 0
		det(t, "car", 0.4, 0, 0, 9, 9),         // merges with secondary 0, then suppressed
		det(t, "person", 0.7, 50, 50, 60, 80),  // passes through
	}
	secondary := List{
		det(t, "car", 0.8, 1, 1, 11, 11),
		det(t, "dog", 0.6, 200, 200, 220, 220), // dropped
	}

	res := m.Merge(primary, secondary)

	if res.Matched != 2 {
		t.Errorf("Matched: got %d, want 2", res.Matched)
	}
	if res.PassThrough != 1 {
		t.Errorf("PassThrough: got %d, want 1", res.PassThrough)
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", res.Dropped)
	}
	if res.Suppressed != 1 {
		t.Errorf("Suppressed: got %d, want 1", res.Suppressed)
	}
	if res.Count != 2 || len(res.Detections) != 2 {
		t.Fatalf("Count: got %d (%d detections), want 2", res.Count, len(res.Detections))
	}

	want := List{
		det(t, "car", 0.85, 0.5, 0.5, 10.5, 10.5),
		det(t, "person", 0.7, 50, 50, 60, 80),
	}
	if diff := diffLists(want, res.Detections); diff != "" {
		t.Errorf("Detections mismatch (-want +got):\n%s", diff)
	}
}

func TestMerger_ResultHasNoOverlapAboveThreshold(t *testing.T) {
	opts := DefaultMergeOptions()
	opts.SuppressionThreshold = 0.3
	opts.Policy = BestMatch
	m, err := NewMerger(opts)
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}

	for seed := int64(1); seed <= 10; seed++ {
		res := m.Merge(randomList(30, seed), randomList(30, seed+100))
		for i := range res.Detections {
			for j := i + 1; j < len(res.Detections); j++ {
				if IoU(res.Detections[i].Box(), res.Detections[j].Box()) > opts.SuppressionThreshold {
					t.Fatalf("seed %d: detections %d and %d overlap above threshold", seed, i, j)
				}
			}
		}
	}
}

func TestNewMerger_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts MergeOptions
	}{
		{"association below zero", MergeOptions{AssociationThreshold: -0.1, SuppressionThreshold: 0.5}},
		{"association above one", MergeOptions{AssociationThreshold: 1.5, SuppressionThreshold: 0.5}},
		{"suppression above one", MergeOptions{AssociationThreshold: 0.5, SuppressionThreshold: 2}},
		{"association NaN", MergeOptions{AssociationThreshold: math.NaN(), SuppressionThreshold: 0.5}},
		{"suppression NaN", MergeOptions{AssociationThreshold: 0.5, SuppressionThreshold: math.NaN()}},
		{"unknown policy", MergeOptions{AssociationThreshold: 0.5, SuppressionThreshold: 0.5, Policy: MatchPolicy(9)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMerger(tt.opts); err == nil {
				t.Errorf("expected error for %+v", tt.opts)
			}
		})
	}
}

func TestMerger_Options(t *testing.T) {
	opts := MergeOptions{
		AssociationThreshold: 0.4,
		SuppressionThreshold: 0.6,
		Policy:               BestMatch,
		IntegerPixels:        true,
	}
	m, err := NewMerger(opts)
	if err != nil {
		t.Fatalf("NewMerger failed: %v", err)
	}
	if got := m.Options(); got != opts {
		t.Errorf("Options: got %+v, want %+v", got, opts)
	}
}
