package prefilter

import "testing"

func TestAnchorForPattern(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    string
	}{
		{"plain literal", `socket\.SOCK_DGRAM`, "socket.SOCK_DGRAM"},
		{"escaped paren", `sendto\(`, "sendto("},
		{"literal around class", `import [a-z]+ as exfil_helper`, " as exfil_helper"},
		{"top-level alternation", `foo|barbazquux`, ""},
		{"pure char class", `[0-9a-f]{32}`, ""},
		{"plus keeps first iteration", `(abcdefgh)+`, "abcdefgh"},
		{"star is optional", `(abcdefgh)*x`, "x"},
		{"quest is optional", `(abcdefgh)?x`, "x"},
		{"capture group", `(subprocess\.Popen)`, "subprocess.Popen"},
		{"invalid pattern", `(`, ""},
	}

	for _, tc := range cases {
		if got := anchorForPattern(tc.pattern); got != tc.want {
			t.Errorf("%s: anchorForPattern(%q) = %q, want %q", tc.name, tc.pattern, got, tc.want)
		}
	}
}
