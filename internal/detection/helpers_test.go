package detection

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// det builds a detection from literal coordinates, failing the test on bad input.
func det(t *testing.T, label string, conf float64, x1, y1, x2, y2 float64) Detection {
	t.Helper()
	d, err := New(label, conf, Box{X1: x1, Y1: y1, X2: x2, Y2: y2})
	if err != nil {
		t.Fatalf("New(%q, %v): %v", label, conf, err)
	}
	return d
}

// randomBoxes returns n boxes on a 100x100 canvas, some of them degenerate.
func randomBoxes(n int, seed int64) []Box {
	r := rand.New(rand.NewSource(seed))
	boxes := make([]Box, n)
	for i := range boxes {
		x1 := math.Round(r.Float64()*80*4) / 4
		y1 := math.Round(r.Float64()*80*4) / 4
		w := math.Round(r.Float64()*40*4) / 4
		h := math.Round(r.Float64()*40*4) / 4
		if i%17 == 0 {
			w = 0
		}
		boxes[i] = Box{X1: x1, Y1: y1, X2: x1 + w, Y2: y1 + h}
	}
	return boxes
}

// randomList returns n detections with random labels, scores and boxes.
func randomList(n int, seed int64) List {
	r := rand.New(rand.NewSource(seed))
	labels := []string{"car", "person", "truck"}
	boxes := randomBoxes(n, seed+1)
	out := make(List, n)
	for i := range out {
		conf := math.Round(r.Float64()*100) / 100
		out[i] = MustNew(labels[r.Intn(len(labels))], conf, boxes[i])
	}
	return out
}

// diffLists compares lists through their wire records with float tolerance.
func diffLists(want, got List) string {
	return cmp.Diff(want.Records(), got.Records(), cmpopts.EquateApprox(0, 1e-9), cmpopts.EquateEmpty())
}
