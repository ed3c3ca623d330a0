package domain

import "testing"

func TestValidDisplayName(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"full name", "Ann Lee", true},
		{"three tokens", "Ann Maria Lee", true},
		{"single token", "Ann", false},
		{"empty", "", false},
		{"spaces only", "   ", false},
		{"extra whitespace", "  Ann   Lee  ", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidDisplayName(tc.in); got != tc.want {
				t.Fatalf("ValidDisplayName(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDisplayNameWithHandle(t *testing.T) {
	if got := DisplayNameWithHandle("Ann Lee", "annlee"); got != "Ann Lee (@annlee)" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayNameWithHandle("Ann Lee", ""); got != "Ann Lee" {
		t.Fatalf("got %q", got)
	}
}
