package uepak

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizePathSegment(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("a", 400)
	gotLong, err := sanitizePathSegment(longName)
	if err != nil {
		t.Fatalf("sanitizePathSegment(long): %v", err)
	}
	if len(gotLong) > maxSanitizedSegmentLen {
		t.Fatalf("len(long)=%d, want <= %d", len(gotLong), maxSanitizedSegmentLen)
	}
	if gotLong == longName {
		t.Fatal("long segment was not shortened")
	}
	if again, _ := sanitizePathSegment(longName); again != gotLong {
		t.Fatal("shortening is not deterministic")
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "Hero.uasset", want: "Hero.uasset"},
		{in: "CON.uasset", want: "_CON.uasset"},
		{in: "nul", want: "_nul"},
		{in: "CLOCK$.ini", want: "_CLOCK$.ini"},
		{in: "lpt9.log", want: "_lpt9.log"},
		{in: "a:b?.uasset", want: "a_b_.uasset"},
		{in: "name. ", want: "name"},
		{in: "...", want: "_"},
		{in: "a\x1b[31m.uasset", want: "a_[31m.uasset"},
		{in: "name\u009b0m.uasset", want: "name_0m.uasset"},
		{in: "a\x7fb.uasset", want: "a_b.uasset"},
		{in: "a\uFFFDb.uasset", want: "a_b.uasset"},
	}

	for _, tc := range testCases {
		got, err := sanitizePathSegment(tc.in)
		if err != nil {
			t.Fatalf("sanitizePathSegment(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizePathSegment(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := sanitizePathSegment(".."); !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("sanitizePathSegment(..) err=%v", err)
	}
}

func TestIsReservedDeviceName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		want bool
	}{
		{name: "con", want: true},
		{name: "con.txt", want: true},
		{name: "COM1", want: true},
		{name: "CLOCK$", want: true},
		{name: "com0", want: false},
		{name: "normal.txt", want: false},
		{name: "_con.txt", want: false},
		{name: "console.ini", want: false},
	}

	for _, tc := range testCases {
		got := isReservedDeviceName(tc.name)
		if got != tc.want {
			t.Fatalf("isReservedDeviceName(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPathSanitizerCollisions(t *testing.T) {
	t.Parallel()

	s := newPathSanitizer()
	inputs := []string{"Game/a:b.uasset", "Game/a?b.uasset", "GAME/A:B.uasset", "Game/con/x.ini"}
	want := []string{"Game/a_b.uasset", "Game/a_b~2.uasset", "GAME/A_B~3.uasset", "Game/_con/x.ini"}

	for i, in := range inputs {
		got, err := s.Sanitize(in)
		if err != nil {
			t.Fatalf("Sanitize(%q): %v", in, err)
		}
		if got != want[i] {
			t.Fatalf("Sanitize(%q)=%q, want %q", in, got, want[i])
		}
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	got, err := SanitizePath(`Game\Maps\aux.umap`)
	if err != nil {
		t.Fatalf("SanitizePath: %v", err)
	}
	if got != "Game/Maps/_aux.umap" {
		t.Fatalf("SanitizePath=%q", got)
	}

	if _, err := SanitizePath("../escape.uasset"); !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("SanitizePath(traversal) err=%v", err)
	}
}
