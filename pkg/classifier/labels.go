package classifier

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.Und)

// TitleCase capitalizes each word and lower-cases the rest.
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// SpeciesFromLabel splits a raw model label such as
// "great_white_shark, Carcharodon carcharias" into a title-cased common name
// and a scientific name. The last comma segment is used as the scientific name
// only when it is exactly two words; otherwise the common name is reused.
func SpeciesFromLabel(raw string) (commonName, scientificName string) {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	commonName = TitleCase(strings.ReplaceAll(parts[0], "_", " "))
	if commonName == "" {
		commonName = "Unknown"
	}

	scientificName = commonName
	if len(parts) > 1 && len(strings.Fields(parts[len(parts)-1])) == 2 {
		scientificName = parts[len(parts)-1]
	}
	return commonName, scientificName
}
