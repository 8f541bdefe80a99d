package internal

import "testing"

func TestParseDepth(t *testing.T) {
	tests := []struct {
		s    string
		want Depth
	}{
		{"0", DepthZero},
		{"1", DepthOne},
		{"infinity", DepthInfinity},
		{"", DepthInfinity},
		{"30", DepthInfinity},
		{"Infinity", DepthInfinity},
	}

	for _, tc := range tests {
		if got := ParseDepth(tc.s); got != tc.want {
			t.Errorf("ParseDepth(%q) = %v, expected %v", tc.s, got, tc.want)
		}
	}
}

func TestDepthString(t *testing.T) {
	tests := []struct {
		d    Depth
		want string
	}{
		{DepthZero, "0"},
		{DepthOne, "1"},
		{DepthInfinity, "infinity"},
	}

	for _, tc := range tests {
		if got := tc.d.String(); got != tc.want {
			t.Errorf("Depth(%d).String() = %q, expected %q", tc.d, got, tc.want)
		}
	}
}
