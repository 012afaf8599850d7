package service

import (
	"net/url"
	"strings"
)

// SearchLinks are web searches offered next to every answer so a clinician
// can check current guidance.
type SearchLinks struct {
	Google string `json:"google_search"`
	PubMed string `json:"pubmed_search"`
}

// NewSearchLinks builds the links for the caller's query text.
func NewSearchLinks(query string) SearchLinks {
	query = strings.Join(strings.Fields(query), " ")
	return SearchLinks{
		Google: "https://www.google.com/search?q=" + url.QueryEscape(query+" clinical guidelines treatment"),
		PubMed: "https://pubmed.ncbi.nlm.nih.gov/?term=" + url.QueryEscape(query),
	}
}
