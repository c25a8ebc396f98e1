package store

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// DisplayName normalizes a session display name, generating a dated fallback
// when the caller supplies none.
func DisplayName(name string, createdAt time.Time) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "Survey " + createdAt.UTC().Format("2006-01-02 15:04")
	}
	return titleCaser.String(name)
}
