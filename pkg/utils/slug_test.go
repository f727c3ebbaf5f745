package utils

import (
	"regexp"
	"strings"
	"testing"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

func TestSlugBase(t *testing.T) {
	cases := []struct {
		title, fallback, want string
	}{
		{"My Talk", "speaker", "my-talk"},
		{"  Hello,   World!! ", "speaker", "hello-world"},
		{"--Go & Rust--", "deck", "go-rust"},
		{"Ünïcode Only", "deck", "n-code-only"},
		{"!!!", "deck", "deck"},
		{"", "speaker", "speaker"},
		{"", "", DefaultSlugBase},
	}
	for _, tc := range cases {
		if got := SlugBase(tc.title, tc.fallback); got != tc.want {
			t.Fatalf("SlugBase(%q): want=%q got=%q", tc.title, tc.want, got)
		}
	}
}

func TestSlugifyShape(t *testing.T) {
	titles := []string{"My Talk", "", "***", "A  B  C", "Keynote: The Future of X (2024)"}
	for _, title := range titles {
		s := Slugify(title, "speaker")
		if s == "" || !slugShape.MatchString(s) {
			t.Fatalf("Slugify(%q): bad shape %q", title, s)
		}
		suffix := s[strings.LastIndex(s, "-")+1:]
		if len(suffix) != SlugSuffixLength {
			t.Fatalf("Slugify(%q): suffix want len %d got=%q", title, SlugSuffixLength, suffix)
		}
	}
}

func TestSlugifyMyTalk(t *testing.T) {
	s := Slugify("My Talk", "speaker")
	if !regexp.MustCompile(`^my-talk-[a-z0-9]{8}$`).MatchString(s) {
		t.Fatalf("want my-talk-XXXXXXXX got=%q", s)
	}
}

func TestSlugifyDoesNotCollide(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		s := Slugify("Same Title", "deck")
		if seen[s] {
			t.Fatalf("collision after %d slugs: %q", i, s)
		}
		seen[s] = true
	}
}
