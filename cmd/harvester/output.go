package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/harvest"
)

// runOutput is the JSON shape of a search or ids harvest.
type runOutput struct {
	Mode           domain.HarvestMode `json:"mode"`
	Created        []string           `json:"created"`
	AlreadyExisted []string           `json:"already_existed"`
	Skipped        []string           `json:"skipped,omitempty"`
	Expanded       []string           `json:"expanded,omitempty"`
	LinksCreated   int                `json:"links_created"`
}

func newRunOutput(mode domain.HarvestMode, res *harvest.RunResult) runOutput {
	out := runOutput{Mode: mode, LinksCreated: res.LinksCreated, Expanded: res.Expanded}
	if res.Articles != nil {
		out.Created = res.Articles.Created
		out.AlreadyExisted = res.Articles.AlreadyExisted
		out.Skipped = res.Articles.Skipped
	}
	if out.Created == nil {
		out.Created = []string{}
	}
	if out.AlreadyExisted == nil {
		out.AlreadyExisted = []string{}
	}
	return out
}

// articleOutput is an article together with its stored links.
type articleOutput struct {
	*domain.Article
	Links []domain.RelatedLink `json:"links"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRun(w io.Writer, out runOutput) {
	fmt.Fprintf(w, "Mode:            %s\n", out.Mode)
	fmt.Fprintf(w, "Created:         %d %s\n", len(out.Created), joinIDs(out.Created))
	fmt.Fprintf(w, "Already stored:  %d %s\n", len(out.AlreadyExisted), joinIDs(out.AlreadyExisted))
	if len(out.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped:         %d %s\n", len(out.Skipped), joinIDs(out.Skipped))
	}
	if len(out.Expanded) > 0 {
		fmt.Fprintf(w, "Expanded:        %d %s\n", len(out.Expanded), joinIDs(out.Expanded))
	}
	fmt.Fprintf(w, "Links created:   %d\n", out.LinksCreated)
}

func printRelated(w io.Writer, res *domain.RelatedHarvestResult) {
	fmt.Fprintf(w, "Article:         %s\n", res.PMID)
	fmt.Fprintf(w, "Neighbors:       %d\n", len(res.Neighbors))
	if res.Articles != nil {
		fmt.Fprintf(w, "Created:         %d %s\n", len(res.Articles.Created), joinIDs(res.Articles.Created))
	}
	fmt.Fprintf(w, "Links created:   %d\n", res.LinksCreated)
}

func printArticle(w io.Writer, out articleOutput) {
	a := out.Article
	fmt.Fprintln(w, a.PMID)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Title:     %s\n", a.Title)
	if a.Authors != "" {
		fmt.Fprintf(w, "Authors:   %s\n", a.Authors)
	}
	fmt.Fprintf(w, "Journal:   %s", a.JournalName)
	if a.Volume != "" {
		fmt.Fprintf(w, " %s", a.Volume)
		if a.Issue != "" {
			fmt.Fprintf(w, "(%s)", a.Issue)
		}
	}
	if a.Pages != "" {
		fmt.Fprintf(w, ":%s", a.Pages)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Date:      %s\n", a.PublicationDate)
	fmt.Fprintf(w, "Status:    %s\n", a.ReviewStatus)
	if a.DOI != "" {
		fmt.Fprintf(w, "DOI:       %s\n", a.DOI)
	}
	if a.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", a.Abstract)
	}
	if len(out.Links) > 0 {
		fmt.Fprintf(w, "\nRelated (%d):\n", len(out.Links))
		for _, l := range out.Links {
			fmt.Fprintf(w, "  %-12s score %g\n", l.Other(a.PMID), l.Score)
		}
	}
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return "[" + strings.Join(ids, " ") + "]"
}
