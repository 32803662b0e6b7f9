package region

import "testing"

// Test the full regime compatibility matrix
func TestCompatibilityMatrix(t *testing.T) {
	tests := []struct {
		name     string
		source   Regime
		target   Regime
		dir      Direction
		expected bool
	}{
		{"FIFO to FIFO", FIFO, FIFO, DirectionIn, true},
		{"FILO to FILO", FILO, FILO, DirectionOut, true},
		{"SEQ to SEQ", SEQ, SEQ, DirectionIn, true},
		{"RAND to RAND", RAND, RAND, DirectionOut, true},

		{"RAND source to SEQ", RAND, SEQ, DirectionIn, true},
		{"RAND source to FIFO", RAND, FIFO, DirectionOut, true},
		{"SEQ to RAND target", SEQ, RAND, DirectionIn, true},
		{"FILO to RAND target", FILO, RAND, DirectionOut, true},

		{"SEQ to FIFO", SEQ, FIFO, DirectionIn, false},
		{"SEQ to FIFO outward", SEQ, FIFO, DirectionOut, false},
		{"SEQ to FILO", SEQ, FILO, DirectionIn, false},

		{"FIFO to FILO outward", FIFO, FILO, DirectionOut, true},
		{"FIFO to FILO inward", FIFO, FILO, DirectionIn, false},
		{"FILO to FIFO inward", FILO, FIFO, DirectionIn, true},
		{"FILO to FIFO outward", FILO, FIFO, DirectionOut, false},

		{"FIFO to SEQ", FIFO, SEQ, DirectionIn, false},
		{"FILO to SEQ", FILO, SEQ, DirectionOut, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compatible(tt.source, tt.target, tt.dir)
			if got != tt.expected {
				t.Errorf("Compatible(%s, %s, %s) = %v, expected %v",
					tt.source, tt.target, tt.dir, got, tt.expected)
			}
		})
	}
}

// Test symmetry: swapping source/target preserves the verdict exactly
// for equal regimes and RAND on either side
func TestCompatibilitySymmetry(t *testing.T) {
	regimes := []Regime{FIFO, FILO, SEQ, RAND}
	dirs := []Direction{DirectionIn, DirectionOut}

	for _, src := range regimes {
		for _, dst := range regimes {
			for _, dir := range dirs {
				forward := Compatible(src, dst, dir)
				backward := Compatible(dst, src, dir)

				symmetric := src == dst || src == RAND || dst == RAND
				if symmetric && forward != backward {
					t.Errorf("Expected symmetry for %s/%s dir=%s: %v vs %v",
						src, dst, dir, forward, backward)
				}
				if src == FIFO && dst == FILO && forward == backward {
					t.Errorf("FIFO/FILO should be asymmetric under dir=%s", dir)
				}
			}
		}
	}
}
