package main

import "testing"

func TestTopIndices(t *testing.T) {
	probs := []float64{0.1, 0.4, 0.05, 0.3, 0.15}

	tests := []struct {
		n    int
		want []int
	}{
		{3, []int{1, 3, 4}},
		{1, []int{1}},
		{10, []int{1, 3, 4, 0, 2}},
	}

	for _, tt := range tests {
		got := topIndices(probs, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("n=%d: expected %v, got %v", tt.n, tt.want, got)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("n=%d: expected %v, got %v", tt.n, tt.want, got)
				break
			}
		}
	}
}
