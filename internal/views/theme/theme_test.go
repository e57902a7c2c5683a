package theme

import "testing"

func TestResolve(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key  string
		want string
	}{
		{key: "service", want: "service"},
		{key: "  PRINT ", want: "print"},
		{key: "", want: DefaultKey},
		{key: "neon", want: DefaultKey},
	}
	for _, tc := range cases {
		if got := Resolve(tc.key).Key; got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestOptionsAreResolvable(t *testing.T) {
	t.Parallel()

	for _, option := range Options() {
		if got := Resolve(option.Value).Key; got != option.Value {
			t.Fatalf("option %q resolves to %q", option.Value, got)
		}
	}
}
