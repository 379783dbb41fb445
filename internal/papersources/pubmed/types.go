// Package pubmed provides a client for the NCBI PubMed E-utilities API.
//
// The client covers the three endpoints the harvester needs: esearch for
// candidate ids, efetch for full article XML and elink with
// cmd=neighbor_score for related articles.
//
// The E-utilities API documentation is available at:
// https://www.ncbi.nlm.nih.gov/books/NBK25499/
package pubmed

import "encoding/xml"

// ESearchResult represents the response from the esearch.fcgi endpoint.
type ESearchResult struct {
	XMLName   xml.Name   `xml:"eSearchResult"`
	Count     int        `xml:"Count"`
	RetMax    int        `xml:"RetMax"`
	RetStart  int        `xml:"RetStart"`
	IDList    IDList     `xml:"IdList"`
	ErrorList *ErrorList `xml:"ErrorList,omitempty"`
	Error     string     `xml:"ERROR,omitempty"`
}

// IDList contains the list of PMIDs returned by a search.
type IDList struct {
	IDs []string `xml:"Id"`
}

// ErrorList contains errors from the E-utilities API.
type ErrorList struct {
	PhraseNotFound []string `xml:"PhraseNotFound,omitempty"`
	FieldNotFound  []string `xml:"FieldNotFound,omitempty"`
}

// ELinkResult represents the response from the elink.fcgi endpoint.
type ELinkResult struct {
	XMLName  xml.Name  `xml:"eLinkResult"`
	LinkSets []LinkSet `xml:"LinkSet"`
	Error    string    `xml:"ERROR,omitempty"`
}

// LinkSet groups the links found for one source id.
type LinkSet struct {
	DbFrom     string      `xml:"DbFrom"`
	IDList     IDList      `xml:"IdList"`
	LinkSetDbs []LinkSetDb `xml:"LinkSetDb"`
	Error      string      `xml:"ERROR,omitempty"`
}

// LinkSetDb holds the links into one target database for one link category.
type LinkSetDb struct {
	DbTo     string `xml:"DbTo"`
	LinkName string `xml:"LinkName"`
	Links    []Link `xml:"Link"`
}

// Link is one neighbor with its similarity score.
type Link struct {
	ID    string `xml:"Id"`
	Score string `xml:"Score"`
}

// Related article link categories.
const (
	DatabasePubMed       = "pubmed"
	LinkNameSimilar      = "pubmed_pubmed"
	CommandNeighborScore = "neighbor_score"
)
