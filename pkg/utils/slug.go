package utils

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	// SlugSuffixLength is the length of the random disambiguator appended to every slug.
	SlugSuffixLength = 8
	// DefaultSlugBase is used when a title normalizes to nothing.
	DefaultSlugBase = "item"
)

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

var slugSeparatorRun = regexp.MustCompile(`[^a-z0-9]+`)

// SlugBase normalizes a title into its URL-safe base: lower-cased, runs of
// non-alphanumerics collapsed to a single "-", no leading or trailing "-".
// fallback is returned when nothing remains.
func SlugBase(title, fallback string) string {
	base := strings.ToLower(strings.TrimSpace(title))
	base = slugSeparatorRun.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = strings.Trim(slugSeparatorRun.ReplaceAllString(strings.ToLower(fallback), "-"), "-")
	}
	if base == "" {
		base = DefaultSlugBase
	}
	return base
}

// Slugify returns SlugBase(title, fallback) followed by "-" and a random
// lowercase alphanumeric suffix. Uniqueness is probabilistic; no store lookup is made.
func Slugify(title, fallback string) string {
	return SlugBase(title, fallback) + "-" + RandomSuffix(SlugSuffixLength)
}

// RandomSuffix returns n characters drawn uniformly from [a-z0-9].
func RandomSuffix(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		sb.WriteByte(slugAlphabet[idx.Int64()])
	}
	return sb.String()
}
