package version

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.3.0", "1.3.0", 0},
		{"1.3", "1.3.0", 0},
		{"v1.3.0", "1.3.0", 0},
		{"1.4.0", "1.3.9", 1},
		{"1.3.9", "1.4.0", -1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0", "1.99.99", 1},
		{"", "0", 0},
	}

	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestIsNewer(t *testing.T) {
	if !IsNewer("1.4.0", "1.3.0") {
		t.Fatalf("expected 1.4.0 to be newer than 1.3.0")
	}
	if IsNewer("1.3.0", "1.3.0") {
		t.Fatalf("equal versions must not be considered newer")
	}
	if IsNewer("1.2.9", "1.3.0") {
		t.Fatalf("older version must not be considered newer")
	}
}
