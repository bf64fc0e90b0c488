package common

import (
	"errors"
	"regexp"
	"strings"
)

// UncategorizedCategory is used for tickets that arrive without a category.
const UncategorizedCategory = "uncategorized"

var (
	ErrEmptySlug = errors.New("slug cannot be empty")
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases input and collapses every run of other characters into
// a single hyphen. fallback is used when input has nothing left.
func Slugify(input, fallback string) (string, error) {
	slug := slugify(input)
	if slug == "" {
		slug = slugify(fallback)
	}
	if slug == "" {
		return "", ErrEmptySlug
	}
	return slug, nil
}

// NormalizeCategory maps free-form category labels from ticket sources onto
// the slug form policies and insights compare against ("How To" and "how_to"
// both become "how-to").
func NormalizeCategory(input string) string {
	slug, err := Slugify(input, UncategorizedCategory)
	if err != nil {
		return UncategorizedCategory
	}
	return slug
}

func slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
