package probe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ignoredInputTypes are controls that never carry profile data.
var ignoredInputTypes = map[string]bool{
	"submit": true,
	"button": true,
	"reset":  true,
	"image":  true,
}

// FormFields returns the sorted, de-duplicated names and ids of the data
// entry controls (input, select, textarea) in an HTML document.
func FormFields(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	doc.Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "input" {
			inputType, _ := s.Attr("type")
			if ignoredInputTypes[strings.ToLower(strings.TrimSpace(inputType))] {
				return
			}
		}
		for _, attr := range []string{"name", "id"} {
			if v, ok := s.Attr(attr); ok {
				if v = strings.TrimSpace(v); v != "" {
					seen[v] = true
				}
			}
		}
	})

	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields, nil
}

// MissingMapping is a field mapping whose destination control is absent from the page.
type MissingMapping struct {
	ProfileField string `json:"profile_field"`
	FormField    string `json:"form_field"`
}

// CheckMappings compares field mappings (profile field -> form field) with the
// fields present on a page and returns the unmatched ones, ordered by profile field.
func CheckMappings(mappings map[string]string, pageFields []string) []MissingMapping {
	present := make(map[string]bool, len(pageFields))
	for _, f := range pageFields {
		present[f] = true
	}

	missing := []MissingMapping{}
	for profileField, formField := range mappings {
		if !present[formField] {
			missing = append(missing, MissingMapping{ProfileField: profileField, FormField: formField})
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return missing[i].ProfileField < missing[j].ProfileField
	})
	return missing
}
