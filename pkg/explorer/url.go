package explorer

import "strings"

// Placeholder is the token host pages put in the placename endpoint where
// the placename identifier goes.
const Placeholder = "ID_PLACEHOLDER"

// ResolveDetailURL substitutes id for the first placeholder in template.
// A template without placeholder is returned unchanged.
func ResolveDetailURL(template, id string) string {
	return strings.Replace(template, Placeholder, id, 1)
}

// DetailRenderable reports whether url can be handed to the placename card:
// it must be set and fully resolved.
func DetailRenderable(url string) bool {
	return url != "" && !strings.Contains(url, Placeholder)
}
