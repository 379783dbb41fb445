package normalize

import (
	"github.com/helixir/pubmed-harvester/internal/domain"
)

const opNormalize = "normalize"

// Normalize builds the canonical article for one document. Every field falls
// back to empty independently; the only failures are structural: a missing
// PMID or a MedlineCitation without a Status attribute.
func Normalize(doc *Document) (*domain.Article, error) {
	pmid := Text(doc, SelPMID)
	if pmid == "" {
		return nil, domain.NewStructuralError(opNormalize, "", "article has no PMID")
	}

	status, ok := ReviewStatus(doc)
	if !ok {
		return nil, domain.NewStructuralError(opNormalize, pmid, "MedlineCitation has no Status attribute")
	}

	return &domain.Article{
		PMID:            pmid,
		PublicationDate: PublicationDate(doc),
		JournalName:     Text(doc, SelJournalName),
		Volume:          Text(doc, SelVolume),
		Issue:           Text(doc, SelIssue),
		Title:           Text(doc, SelTitle),
		Pages:           Text(doc, SelPages),
		Abstract:        Text(doc, SelAbstract),
		Authors:         Authors(doc),
		Affiliations:    Text(doc, SelAffiliation),
		PublicationType: PublicationType(doc),
		DOI:             Text(doc, SelDOI),
		ReviewStatus:    domain.ReviewStatus(status),
		RawXML:          string(doc.Raw),
	}, nil
}

// Renormalize rebuilds an article from its stored raw XML.
func Renormalize(raw string) (*domain.Article, error) {
	doc, err := ParseDocument([]byte(raw))
	if err != nil {
		return nil, domain.NewStructuralError(opNormalize, "", err.Error())
	}
	return Normalize(doc)
}
