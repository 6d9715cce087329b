package detection

import "testing"

func TestSuppress_RemovesLowerConfidenceDuplicate(t *testing.T) {
	in := List{
		det(t, "car", 0.9, 0, 0, 10, 10),
		det(t, "car", 0.4, 0, 0, 9, 9),
	}

	got := Suppress(in, 0.5)

	want := List{in[0]}
	if diff := diffLists(want, got); diff != "" {
		t.Errorf("Suppress mismatch (-want +got):\n%s", diff)
	}
}

func TestSuppress_KeepsDisjoint(t *testing.T) {
	in := List{
		det(t, "car", 0.9, 0, 0, 5, 5),
		det(t, "car", 0.9, 100, 100, 110, 110),
	}

	got := Suppress(in, 0.5)
	if diff := diffLists(in, got); diff != "" {
		t.Errorf("Suppress removed a disjoint detection (-want +got):\n%s", diff)
	}
}

func TestSuppress_CrossClass(t *testing.T) {
	in := List{
		det(t, "person", 0.3, 0, 0, 10, 10),
		det(t, "car", 0.7, 0, 0, 10, 10),
	}

	got := Suppress(in, 0.5)
	if len(got) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(got))
	}
	if got[0].Label() != "car" {
		t.Errorf("kept label: got %q, want car", got[0].Label())
	}
}

func TestSuppress_OrdersByConfidenceStable(t *testing.T) {
	in := List{
		det(t, "a", 0.5, 0, 0, 1, 1),
		det(t, "b", 0.9, 10, 10, 11, 11),
		det(t, "c", 0.5, 20, 20, 21, 21),
		det(t, "d", 0.7, 30, 30, 31, 31),
	}

	got := Suppress(in, 0.5)

	wantLabels := []string{"b", "d", "a", "c"}
	if len(got) != len(wantLabels) {
		t.Fatalf("expected %d detections, got %d", len(wantLabels), len(got))
	}
	for i, w := range wantLabels {
		if got[i].Label() != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Label(), w)
		}
	}
}

func TestSuppress_TieKeepsEarlierEntry(t *testing.T) {
	in := List{
		det(t, "first", 0.8, 0, 0, 10, 10),
		det(t, "second", 0.8, 0, 0, 10, 10),
	}

	got := Suppress(in, 0.5)
	if len(got) != 1 || got[0].Label() != "first" {
		t.Errorf("expected only %q to survive, got %v", "first", got)
	}
}

func TestSuppress_Empty(t *testing.T) {
	got := Suppress(nil, 0.5)
	if got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty list, got %#v", got)
	}
}

func TestSuppress_DoesNotAliasInput(t *testing.T) {
	in := List{
		det(t, "low", 0.1, 0, 0, 10, 10),
		det(t, "high", 0.9, 50, 50, 60, 60),
	}
	snapshot := append(List(nil), in...)

	got := Suppress(in, 0.5)
	got[0] = det(t, "changed", 0.5, 1, 1, 2, 2)

	if diff := diffLists(snapshot, in); diff != "" {
		t.Errorf("input modified (-want +got):\n%s", diff)
	}
}

func TestSuppress_Idempotent(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		in := randomList(40, seed)

		once := Suppress(in, 0.5)
		twice := Suppress(once, 0.5)

		if diff := diffLists(once, twice); diff != "" {
			t.Fatalf("seed %d: Suppress not idempotent (-once +twice):\n%s", seed, diff)
		}
	}
}

func TestSuppress_NoSurvivingPairAboveThreshold(t *testing.T) {
	for _, threshold := range []float64{0.1, 0.3, 0.5, 0.7} {
		for seed := int64(1); seed <= 10; seed++ {
			got := Suppress(randomList(60, seed), threshold)
			for i := range got {
				for j := i + 1; j < len(got); j++ {
					if iou := IoU(got[i].Box(), got[j].Box()); iou > threshold {
						t.Fatalf("threshold %v seed %d: %v and %v overlap with IoU %v",
							threshold, seed, got[i], got[j], iou)
					}
				}
			}
		}
	}
}
