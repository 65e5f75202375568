package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	c := Cursor{V: 1, Did: "ds-123", Off: 200, Ps: 50, N: 1000}
	tok, err := EncodeCursor(c)
	if err != nil {
		t.Fatalf("EncodeCursor error: %v", err)
	}
	// token should be url-safe base64 (no '+', '/', '=')
	if strings.ContainsAny(tok, "+/=") {
		t.Fatalf("token contains non-url-safe chars: %q", tok)
	}
	out, err := DecodeCursor(tok)
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	if out.Did != c.Did || out.Off != c.Off || out.Ps != c.Ps || out.N != c.N {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", out, c)
	}
	if out.Iat == 0 {
		t.Fatalf("expected issued-at to be stamped")
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []string{
		"",
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("not-json")),
		mustB64(`{"v":1}`),
		mustB64(`{"v":1,"did":"","off":0,"ps":10}`),
		mustB64(`{"v":1,"did":"x","off":-1,"ps":10}`),
		mustB64(`{"v":1,"did":"x","off":0,"ps":0}`),
		mustB64(`{"v":1,"did":"x","off":0,"ps":5,"n":-3}`),
	}
	for i, tok := range cases {
		_, err := DecodeCursor(tok)
		if err == nil {
			t.Fatalf("case %d: expected error for token %q", i, tok)
		}
		if !errors.Is(err, ErrEmptyToken) && !errors.Is(err, ErrMalformed) {
			t.Fatalf("case %d: unexpected error kind: %v", i, err)
		}
	}
}

func TestPage(t *testing.T) {
	cases := []struct {
		off, size, total     int
		start, end, wantNext int
	}{
		{0, 10, 25, 0, 10, 10},
		{20, 10, 25, 20, 25, 0},
		{30, 10, 25, 25, 25, 0},
		{-5, 10, 3, 0, 3, 0},
		{0, 0, 3, 0, 0, 0},
	}
	for _, tc := range cases {
		s, e, n := Page(tc.off, tc.size, tc.total)
		if s != tc.start || e != tc.end || n != tc.wantNext {
			t.Fatalf("Page(%d,%d,%d) = %d,%d,%d want %d,%d,%d", tc.off, tc.size, tc.total, s, e, n, tc.start, tc.end, tc.wantNext)
		}
	}
}

func FuzzDecodeCursor(f *testing.F) {
	seeds := []string{
		"", "abc", mustB64(`{"v":1}`), mustB64(`{"did":"x"}`),
		mustB64(`{"v":1,"did":"ds","off":0,"ps":1,"n":4}`),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, token string) {
		_, _ = DecodeCursor(token)
	})
}

func mustB64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
