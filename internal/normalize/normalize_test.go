package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/pubmed-harvester/internal/domain"
)

const articleSetXML = `<?xml version="1.0" encoding="UTF-8" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2019//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_190101.dtd">
<PubmedArticleSet>
	<PubmedArticle>
		<MedlineCitation Status="MEDLINE" Owner="NLM">
			<PMID Version="1">12345678</PMID>
			<Article PubModel="Print-Electronic">
				<Journal>
					<JournalIssue CitedMedium="Internet">
						<Volume>25</Volume>
						<Issue>3</Issue>
						<PubDate>
							<Year>2023</Year>
							<Month>Mar</Month>
							<Day>15</Day>
						</PubDate>
					</JournalIssue>
					<Title>Journal of Biophotonics</Title>
				</Journal>
				<ArticleTitle>Optical coherence tomography in vivo</ArticleTitle>
				<Pagination>
					<MedlinePgn>123-145</MedlinePgn>
				</Pagination>
				<Abstract>
					<AbstractText>Light scattering &amp; tissue imaging.</AbstractText>
				</Abstract>
				<AuthorList CompleteYN="Y">
					<Author ValidYN="Y">
						<LastName>Smith</LastName>
						<ForeName>John A</ForeName>
						<AffiliationInfo>
							<Affiliation>Department of Optics, University of Research</Affiliation>
						</AffiliationInfo>
					</Author>
					<Author ValidYN="Y">
						<LastName>Johnson</LastName>
						<FirstName>Emily</FirstName>
						<ForeName>E</ForeName>
					</Author>
				</AuthorList>
				<PublicationTypeList>
					<PublicationType UI="D016428">Journal Article</PublicationType>
					<PublicationType UI="D016454"> Review </PublicationType>
				</PublicationTypeList>
			</Article>
		</MedlineCitation>
		<PubmedData>
			<ArticleIdList>
				<ArticleId IdType="pubmed">12345678</ArticleId>
				<ArticleId IdType="doi">10.1234/jbio.2023.001</ArticleId>
			</ArticleIdList>
		</PubmedData>
	</PubmedArticle>
	<PubmedArticle>
		<MedlineCitation Status="Publisher" Owner="NLM">
			<PMID Version="1">87654321</PMID>
			<Article PubModel="Print">
				<Journal>
					<JournalIssue>
						<PubDate>
							<Year>1999</Year>
						</PubDate>
					</JournalIssue>
				</Journal>
				<ArticleTitle>Sparse record</ArticleTitle>
			</Article>
		</MedlineCitation>
	</PubmedArticle>
</PubmedArticleSet>`

func parseSet(t *testing.T) []*Document {
	t.Helper()
	docs, err := ParseArticleSet([]byte(articleSetXML))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	return docs
}

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestParseArticleSet(t *testing.T) {
	t.Run("splits articles and keeps verbatim bytes", func(t *testing.T) {
		docs := parseSet(t)
		for _, d := range docs {
			raw := string(d.Raw)
			assert.True(t, strings.HasPrefix(raw, "<PubmedArticle>"), raw[:20])
			assert.True(t, strings.HasSuffix(raw, "</PubmedArticle>"))
			assert.Contains(t, articleSetXML, raw)
			assert.Equal(t, ArticleElement, d.Root.Name)
		}
		assert.Contains(t, string(docs[0].Raw), "12345678")
		assert.NotContains(t, string(docs[0].Raw), "87654321")
	})

	t.Run("empty set", func(t *testing.T) {
		docs, err := ParseArticleSet([]byte(`<PubmedArticleSet></PubmedArticleSet>`))
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("malformed xml", func(t *testing.T) {
		_, err := ParseArticleSet([]byte(`<PubmedArticleSet><PubmedArticle><PMID>1</PMID>`))
		assert.Error(t, err)
	})
}

func TestParseDocument(t *testing.T) {
	t.Run("round trip from raw bytes", func(t *testing.T) {
		docs := parseSet(t)
		doc := mustParse(t, string(docs[0].Raw))
		assert.Equal(t, "12345678", Text(doc, SelPMID))
	})

	t.Run("no element", func(t *testing.T) {
		_, err := ParseDocument([]byte("   "))
		assert.ErrorIs(t, err, ErrNoArticle)
	})
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    Selector
		wantErr bool
	}{
		{name: "single tag", path: "PMID", want: Selector{{Tag: "PMID"}}},
		{name: "descendant path", path: "JournalIssue  Volume", want: Selector{{Tag: "JournalIssue"}, {Tag: "Volume"}}},
		{name: "attribute filter", path: "ArticleId[IdType=doi]", want: Selector{{Tag: "ArticleId", Attr: "IdType", Value: "doi", HasFilter: true}}},
		{name: "quoted value", path: `ArticleId[IdType="pmc"]`, want: Selector{{Tag: "ArticleId", Attr: "IdType", Value: "pmc", HasFilter: true}}},
		{name: "empty", path: "  ", wantErr: true},
		{name: "missing tag", path: "[IdType=doi]", wantErr: true},
		{name: "unterminated filter", path: "ArticleId[IdType=doi", wantErr: true},
		{name: "filter without value", path: "ArticleId[IdType]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelector(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "JournalIssue ArticleId[IdType=doi]", MustSelector("JournalIssue ArticleId[IdType=doi]").String())
	assert.Panics(t, func() { MustSelector("") })
}

func TestNode_First(t *testing.T) {
	doc := mustParse(t, `<R><A><B id="1">one</B></A><B id="2">two</B><C><A><X><B id="3">three</B></X></A></C></R>`)

	t.Run("first in document order", func(t *testing.T) {
		n := doc.Root.First(MustSelector("B"))
		require.NotNil(t, n)
		assert.Equal(t, "one", n.InnerText())
	})

	t.Run("descendant at any depth", func(t *testing.T) {
		all := doc.Root.All(MustSelector("A B"))
		require.Len(t, all, 2)
		assert.Equal(t, "one", all[0].InnerText())
		assert.Equal(t, "three", all[1].InnerText())
	})

	t.Run("attribute filter", func(t *testing.T) {
		n := doc.Root.First(MustSelector("B[id=2]"))
		require.NotNil(t, n)
		assert.Equal(t, "two", n.InnerText())
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, doc.Root.First(MustSelector("Z")))
		assert.Nil(t, doc.Root.First(MustSelector("B[id=9]")))
		assert.Nil(t, doc.Root.First(MustSelector("C B[id=1]")))
	})

	t.Run("receiver is not matched", func(t *testing.T) {
		assert.Nil(t, doc.Root.First(MustSelector("R")))
	})

	t.Run("nil node", func(t *testing.T) {
		var n *Node
		assert.Nil(t, n.First(MustSelector("B")))
		assert.Equal(t, "", n.InnerText())
	})
}

func TestExtract(t *testing.T) {
	doc := parseSet(t)[0]

	tests := []struct {
		name string
		sel  Selector
		want string
	}{
		{name: "pmid", sel: SelPMID, want: "12345678"},
		{name: "journal", sel: SelJournalName, want: "Journal of Biophotonics"},
		{name: "volume", sel: SelVolume, want: "25"},
		{name: "issue", sel: SelIssue, want: "3"},
		{name: "title", sel: SelTitle, want: "Optical coherence tomography in vivo"},
		{name: "pages", sel: SelPages, want: "123-145"},
		{name: "abstract", sel: SelAbstract, want: "Light scattering & tissue imaging."},
		{name: "affiliation", sel: SelAffiliation, want: "Department of Optics, University of Research"},
		{name: "doi", sel: SelDOI, want: "10.1234/jbio.2023.001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(doc, tt.sel)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing field is empty not an error", func(t *testing.T) {
		sparse := parseSet(t)[1]
		got, ok := Extract(sparse, SelDOI)
		assert.False(t, ok)
		assert.Empty(t, got)
		assert.Empty(t, Text(sparse, SelVolume))
	})

	t.Run("nil document", func(t *testing.T) {
		_, ok := Extract(nil, SelPMID)
		assert.False(t, ok)
	})
}

func TestAuthors(t *testing.T) {
	t.Run("first name preferred over fore name", func(t *testing.T) {
		doc := parseSet(t)[0]
		assert.Equal(t, "John A Smith, Emily Johnson", Authors(doc))
	})

	t.Run("empty first name falls back to fore name", func(t *testing.T) {
		doc := mustParse(t, `<PubmedArticle><AuthorList>
			<Author><FirstName></FirstName><ForeName>Ada</ForeName><LastName>Lovelace</LastName></Author>
		</AuthorList></PubmedArticle>`)
		assert.Equal(t, "Ada Lovelace", Authors(doc))
	})

	t.Run("no authors", func(t *testing.T) {
		doc := parseSet(t)[1]
		assert.Equal(t, "", Authors(doc))
	})
}

func TestPublicationType(t *testing.T) {
	assert.Equal(t, "Journal Article, Review", PublicationType(parseSet(t)[0]))
	assert.Equal(t, "", PublicationType(parseSet(t)[1]))
}

func TestPublicationDate(t *testing.T) {
	tests := []struct {
		name    string
		pubDate string
		want    string
	}{
		{name: "year month day", pubDate: "<Year>2023</Year><Month>Mar</Month><Day>15</Day>", want: "2023-03-15"},
		{name: "year month", pubDate: "<Year>2009</Year><Month>Dec</Month>", want: "2009-12-01"},
		{name: "numeric month", pubDate: "<Year>2009</Year><Month>07</Month><Day>4</Day>", want: "2009-07-04"},
		{name: "year only falls back to default month", pubDate: "<Year>1999</Year>", want: "1999 Jan"},
		{name: "season keeps year", pubDate: "<Year>2004</Year><Season>Spring</Season>", want: "2004 Jan"},
		{name: "unparseable month kept verbatim", pubDate: "<Year>2004</Year><Month>Spring</Month>", want: "2004 Spring"},
		{name: "medline date defaults", pubDate: "<MedlineDate>1998 Dec-1999 Jan</MedlineDate>", want: "1900 Jan"},
		{name: "empty pub date", pubDate: "", want: "1900 Jan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, "<PubmedArticle><PubDate>"+tt.pubDate+"</PubDate></PubmedArticle>")
			assert.Equal(t, tt.want, PublicationDate(doc))
		})
	}

	t.Run("no pub date", func(t *testing.T) {
		doc := mustParse(t, "<PubmedArticle/>")
		assert.Equal(t, "1900 Jan", PublicationDate(doc))
	})
}

func TestParseDate(t *testing.T) {
	valid := []string{"2009 Mar 15", "2009  Mar\n15", "2009-03-15", "Mar 15 2009", "15 Mar 2009", "2009 3 15"}
	for _, s := range valid {
		got, ok := ParseDate(s)
		if assert.True(t, ok, s) {
			assert.Equal(t, "2009-03-15", got.Format("2006-01-02"), s)
		}
	}

	for _, s := range []string{"", "1999", "Spring 2004", "not a date"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
}

func TestReviewStatus(t *testing.T) {
	status, ok := ReviewStatus(parseSet(t)[0])
	assert.True(t, ok)
	assert.Equal(t, "MEDLINE", status)

	_, ok = ReviewStatus(mustParse(t, `<PubmedArticle><MedlineCitation><PMID>1</PMID></MedlineCitation></PubmedArticle>`))
	assert.False(t, ok)

	_, ok = ReviewStatus(mustParse(t, `<PubmedArticle/>`))
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		doc := parseSet(t)[0]
		a, err := Normalize(doc)
		require.NoError(t, err)

		assert.Equal(t, "12345678", a.PMID)
		assert.Equal(t, "2023-03-15", a.PublicationDate)
		assert.Equal(t, "Journal of Biophotonics", a.JournalName)
		assert.Equal(t, "25", a.Volume)
		assert.Equal(t, "3", a.Issue)
		assert.Equal(t, "Optical coherence tomography in vivo", a.Title)
		assert.Equal(t, "123-145", a.Pages)
		assert.Equal(t, "John A Smith, Emily Johnson", a.Authors)
		assert.Equal(t, "Department of Optics, University of Research", a.Affiliations)
		assert.Equal(t, "Journal Article, Review", a.PublicationType)
		assert.Equal(t, "10.1234/jbio.2023.001", a.DOI)
		assert.Equal(t, domain.ReviewStatusMedline, a.ReviewStatus)
		assert.Equal(t, string(doc.Raw), a.RawXML)
	})

	t.Run("sparse record defaults every field", func(t *testing.T) {
		a, err := Normalize(parseSet(t)[1])
		require.NoError(t, err)
		assert.Equal(t, "87654321", a.PMID)
		assert.Equal(t, "1999 Jan", a.PublicationDate)
		assert.Empty(t, a.JournalName)
		assert.Empty(t, a.DOI)
		assert.Empty(t, a.Authors)
		assert.Equal(t, domain.ReviewStatusPublisher, a.ReviewStatus)
	})

	t.Run("deterministic", func(t *testing.T) {
		doc := parseSet(t)[0]
		a1, err := Normalize(doc)
		require.NoError(t, err)
		a2, err := Normalize(doc)
		require.NoError(t, err)
		assert.Equal(t, a1, a2)
	})

	t.Run("missing status is structural", func(t *testing.T) {
		doc := mustParse(t, `<PubmedArticle><MedlineCitation><PMID>5</PMID></MedlineCitation></PubmedArticle>`)
		_, err := Normalize(doc)
		assert.ErrorIs(t, err, domain.ErrStructural)
		assert.NotErrorIs(t, err, domain.ErrConnection)
	})

	t.Run("missing pmid is structural", func(t *testing.T) {
		doc := mustParse(t, `<PubmedArticle><MedlineCitation Status="MEDLINE"/></PubmedArticle>`)
		_, err := Normalize(doc)
		assert.ErrorIs(t, err, domain.ErrStructural)
	})

	t.Run("renormalize stored xml", func(t *testing.T) {
		doc := parseSet(t)[0]
		a, err := Renormalize(string(doc.Raw))
		require.NoError(t, err)
		assert.Equal(t, "12345678", a.PMID)

		_, err = Renormalize("")
		assert.ErrorIs(t, err, domain.ErrStructural)
	})
}
