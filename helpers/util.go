package helpers

import (
	"net/url"
	"strings"
)

// CollapseSpace trims the text and collapses internal whitespace runs to
// single spaces.
func CollapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ResolveURL resolves href against base, returning href unchanged when it
// is already absolute or when either URL fails to parse.
func ResolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
