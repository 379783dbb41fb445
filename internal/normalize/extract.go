package normalize

import (
	"strings"
	"time"
)

// Field selectors for a PubmedArticle element.
var (
	SelPMID         = MustSelector("PMID")
	SelJournalName  = MustSelector("Journal Title")
	SelVolume       = MustSelector("JournalIssue Volume")
	SelIssue        = MustSelector("JournalIssue Issue")
	SelTitle        = MustSelector("ArticleTitle")
	SelPages        = MustSelector("MedlinePgn")
	SelAbstract     = MustSelector("Abstract")
	SelAffiliation  = MustSelector("Affiliation")
	SelDOI          = MustSelector("ArticleId[IdType=doi]")
	SelAuthor       = MustSelector("AuthorList Author")
	SelFirstName    = MustSelector("FirstName")
	SelForeName     = MustSelector("ForeName")
	SelLastName     = MustSelector("LastName")
	SelPubType      = MustSelector("PublicationTypeList PublicationType")
	SelPubDate      = MustSelector("PubDate")
	SelPubDateYear  = MustSelector("PubDate Year")
	SelPubDateMonth = MustSelector("PubDate Month")
	SelCitation     = MustSelector("MedlineCitation")
)

const (
	statusAttribute  = "Status"
	defaultYear      = "1900"
	defaultMonth     = "Jan"
	dateOutputLayout = "2006-01-02"
)

// Extract returns the trimmed text of the first node matched by sel and
// whether a node matched. A missing field is not an error.
func Extract(doc *Document, sel Selector) (string, bool) {
	if doc == nil || doc.Root == nil {
		return "", false
	}
	n := doc.Root.First(sel)
	if n == nil {
		return "", false
	}
	return strings.TrimSpace(n.InnerText()), true
}

// Text is Extract without the presence flag.
func Text(doc *Document, sel Selector) string {
	s, _ := Extract(doc, sel)
	return s
}

// Authors renders every author as "<first> <last>" joined with ", ". The
// first name is FirstName when non-empty, otherwise ForeName.
func Authors(doc *Document) string {
	if doc == nil || doc.Root == nil {
		return ""
	}
	authors := doc.Root.All(SelAuthor)
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		first := strings.TrimSpace(a.First(SelFirstName).InnerText())
		if first == "" {
			first = strings.TrimSpace(a.First(SelForeName).InnerText())
		}
		last := strings.TrimSpace(a.First(SelLastName).InnerText())
		names = append(names, first+" "+last)
	}
	return strings.Join(names, ", ")
}

// PublicationType joins the trimmed text of every publication type with ", ".
func PublicationType(doc *Document) string {
	if doc == nil || doc.Root == nil {
		return ""
	}
	types := doc.Root.All(SelPubType)
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, strings.TrimSpace(t.InnerText()))
	}
	return strings.Join(out, ", ")
}

var dateLayouts = []string{
	"2006 Jan 2",
	"2006 January 2",
	"2006 Jan",
	"2006 January",
	"2006 1 2",
	"2006 1",
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"2006/1/2",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2006",
	"January 2006",
}

// PublicationDate parses the first PubDate as a calendar date and renders it
// as YYYY-MM-DD. When the text is not a calendar date it returns
// "<Year> <Month>", defaulting to 1900 and Jan.
func PublicationDate(doc *Document) string {
	if doc == nil || doc.Root == nil {
		return defaultYear + " " + defaultMonth
	}
	if t, ok := ParseDate(dateText(doc.Root.First(SelPubDate))); ok {
		return t.Format(dateOutputLayout)
	}

	year := Text(doc, SelPubDateYear)
	if year == "" {
		year = defaultYear
	}
	month := Text(doc, SelPubDateMonth)
	if month == "" {
		month = defaultMonth
	}
	return year + " " + month
}

// ParseDate parses a human readable date. A bare year is not a date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateText joins the texts of PubDate's child elements with spaces so that
// <Year>2009</Year><Month>Mar</Month> reads as "2009 Mar".
func dateText(n *Node) string {
	if n == nil {
		return ""
	}
	elems := n.Elements()
	if len(elems) == 0 {
		return n.InnerText()
	}
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		if t := strings.TrimSpace(e.InnerText()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// ReviewStatus reads the Status attribute of the MedlineCitation element.
// The attribute is mandatory; its absence reports ok == false.
func ReviewStatus(doc *Document) (string, bool) {
	if doc == nil || doc.Root == nil {
		return "", false
	}
	citation := doc.Root.First(SelCitation)
	if citation == nil {
		return "", false
	}
	return citation.Attr(statusAttribute)
}
