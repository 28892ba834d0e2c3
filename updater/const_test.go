package updater

import "testing"

func TestChooseIBLTSizeIsPowerOfFourMultipleOfMinimum(t *testing.T) {
	cases := []uint32{0, 1, 99, 100, 101, 399, 400, 401, 1599, 1600, 1601}
	for _, diff := range cases {
		size := chooseIBLTSize(diff)

		if size < MinimumIBLTSize {
			t.Fatalf("chooseIBLTSize(%d) = %d, below minimum %d", diff, size, MinimumIBLTSize)
		}
		if size > MaximumIBLTSize {
			t.Fatalf("chooseIBLTSize(%d) = %d, above maximum %d", diff, size, MaximumIBLTSize)
		}
		if uint32(size) < diff && size != MaximumIBLTSize {
			t.Fatalf("chooseIBLTSize(%d) = %d, smaller than requested diff", diff, size)
		}

		ratio := size / MinimumIBLTSize
		for ratio > 1 {
			if ratio%4 != 0 {
				t.Fatalf("chooseIBLTSize(%d) = %d, not a power-of-four multiple of minimum", diff, size)
			}
			ratio /= 4
		}
	}
}

func TestChooseIBLTSizeCapsAtMaximum(t *testing.T) {
	size := chooseIBLTSize(MaximumIBLTSize * 10)
	if size != MaximumIBLTSize {
		t.Fatalf("expected cap at %d, got %d", MaximumIBLTSize, size)
	}
}
