package cluster

import "testing"

func countLabels(labels []Label) map[Label]int {
	counts := make(map[Label]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

func TestDBSCAN_Empty(t *testing.T) {
	if got := DBSCAN(nil, 1.0, 2); len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestDBSCAN_AllNoise(t *testing.T) {
	points := []Point4{
		{X: 0}, {X: 100}, {X: 200}, {X: 300}, {X: 400},
	}
	labels := DBSCAN(points, 1.0, 2)
	for i, l := range labels {
		if l != noise {
			t.Errorf("labels[%d] = %v, want noise", i, l)
		}
	}
}

func TestDBSCAN_SingleCluster_Colinear(t *testing.T) {
	eps := 1.0
	points := []Point4{
		{X: 0}, {X: 0.5}, {X: 1.0}, {X: 1.5}, {X: 2.0},
	}
	labels := DBSCAN(points, eps, 2)
	want := labels[0]
	if want == noise {
		t.Fatalf("expected a positive cluster ID, got noise")
	}
	for i, l := range labels {
		if l != want {
			t.Errorf("labels[%d] = %v, want %v (single cluster)", i, l, want)
		}
	}
}

func TestDBSCAN_Deterministic_OnRepeatedRuns(t *testing.T) {
	points := []Point4{
		{X: 0}, {X: 0.5}, {X: 1.0}, {X: 1.5}, {X: 2.0},
		{X: 100}, {X: 100.5}, {X: 101.0},
	}
	first := DBSCAN(points, 1.0, 2)
	for i := 0; i < 5; i++ {
		got := DBSCAN(points, 1.0, 2)
		for j := range got {
			if got[j] != first[j] {
				t.Fatalf("run %d: labels[%d] = %v, want %v (deterministic)", i, j, got[j], first[j])
			}
		}
	}
}

func TestDBSCAN_TwoSeparatedClusters(t *testing.T) {
	points := []Point4{
		{X: 0}, {X: 0.5}, {X: 1.0},
		{X: 100}, {X: 100.5}, {X: 101.0},
	}
	labels := DBSCAN(points, 1.0, 2)
	counts := countLabels(labels)
	if _, ok := counts[noise]; ok {
		t.Fatalf("expected no noise, got %v", counts)
	}
	if len(counts) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %v", len(counts), counts)
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("first group not uniformly labeled: %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("second group not uniformly labeled: %v", labels[3:])
	}
	if labels[0] == labels[3] {
		t.Errorf("separated clusters share a label: %v", labels)
	}
}

func TestDBSCAN_BorderPointAbsorbedNotExpanded(t *testing.T) {
	// A border point within eps of a core point, but itself without minPts
	// neighbours, joins the cluster without spawning its own expansion.
	points := []Point4{
		{X: 0}, {X: 0.3}, {X: 0.6}, // dense core trio
		{X: 1.5},                  // border: within eps of {0.6} only
	}
	labels := DBSCAN(points, 1.0, 3)
	if labels[3] == noise {
		t.Fatalf("expected border point to join the cluster, got noise")
	}
	if labels[3] != labels[0] {
		t.Fatalf("border point label = %v, want %v (same as core)", labels[3], labels[0])
	}
}

func TestDBSCAN_SpeedAxisSeparatesOtherwiseCoincidentPoints(t *testing.T) {
	points := []Point4{
		{X: 0, Y: 0, Z: 0, Speed: 0},
		{X: 0, Y: 0, Z: 0, Speed: 0.1},
		{X: 0, Y: 0, Z: 0, Speed: 50},
		{X: 0, Y: 0, Z: 0, Speed: 50.1},
	}
	labels := DBSCAN(points, 1.0, 2)
	if labels[0] != labels[1] {
		t.Errorf("close-speed pair split: %v", labels)
	}
	if labels[2] != labels[3] {
		t.Errorf("close-speed pair split: %v", labels)
	}
	if labels[0] == labels[2] {
		t.Errorf("far-speed groups merged: %v", labels)
	}
}
