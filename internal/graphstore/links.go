package graphstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/helixir/pubmed-harvester/internal/domain"
	"github.com/helixir/pubmed-harvester/internal/repository"
)

var _ repository.LinkRepository = (*LinkRepository)(nil)

// constraintViolation is the Neo4j status code raised by uniqueness constraints.
const constraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

const createLinkCypher = `
MERGE (lo:Article {pmid: $pmid_low})
MERGE (hi:Article {pmid: $pmid_high})
WITH lo, hi, EXISTS { (lo)-[:RELATED_TO]->(hi) } AS exists
FOREACH (_ IN CASE WHEN exists THEN [] ELSE [1] END |
  CREATE (lo)-[:RELATED_TO {pmid_low: $pmid_low, pmid_high: $pmid_high, score: $score, created_at: $created_at}]->(hi)
)
RETURN exists`

const listLinksCypher = `
MATCH (:Article {pmid: $pmid})-[r:RELATED_TO]-(:Article)
RETURN r.pmid_low AS pmid_low, r.pmid_high AS pmid_high, r.score AS score, r.created_at AS created_at
ORDER BY score DESC, pmid_low, pmid_high`

var errLinkExists = errors.New("link exists")

// LinkRepository stores links as (low)-[:RELATED_TO]->(high) relationships.
type LinkRepository struct {
	client *Client
}

// CreateLink creates the relationship for a canonical pair. An existing
// relationship, or a concurrent writer tripping the pair constraint, yields
// a DuplicateEdgeError.
func (r *LinkRepository) CreateLink(ctx context.Context, link domain.RelatedLink) error {
	id := link.LowPMID + "-" + link.HighPMID
	if !link.Canonical() {
		return domain.NewPersistenceError("create link", id, fmt.Errorf("link pair is not canonical"))
	}

	session := r.client.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, createLinkCypher, linkParams(link, time.Now()))
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		exists, _, err := neo4j.GetRecordValue[bool](rec, "exists")
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errLinkExists
		}
		return nil, nil
	})
	return mapWriteError(link, err)
}

// ListForPMID returns every link touching pmid, highest score first.
func (r *LinkRepository) ListForPMID(ctx context.Context, pmid string) ([]domain.RelatedLink, error) {
	session := r.client.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, listLinksCypher, map[string]any{"pmid": pmid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		links := make([]domain.RelatedLink, 0, len(records))
		for _, rec := range records {
			link, err := recordToLink(rec)
			if err != nil {
				return nil, err
			}
			links = append(links, link)
		}
		return links, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graphstore: list links: %w", err)
	}
	return out.([]domain.RelatedLink), nil
}

func linkParams(link domain.RelatedLink, now time.Time) map[string]any {
	return map[string]any{
		"pmid_low":   link.LowPMID,
		"pmid_high":  link.HighPMID,
		"score":      link.Score,
		"created_at": now.UTC().Format(time.RFC3339Nano),
	}
}

func mapWriteError(link domain.RelatedLink, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, errLinkExists) {
		return domain.NewDuplicateEdgeError(link.LowPMID, link.HighPMID)
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && neoErr.Code == constraintViolation {
		return domain.NewDuplicateEdgeError(link.LowPMID, link.HighPMID)
	}
	return domain.NewPersistenceError("create link", link.LowPMID+"-"+link.HighPMID, err)
}

func recordToLink(rec *neo4j.Record) (domain.RelatedLink, error) {
	low, _, err := neo4j.GetRecordValue[string](rec, "pmid_low")
	if err != nil {
		return domain.RelatedLink{}, err
	}
	high, _, err := neo4j.GetRecordValue[string](rec, "pmid_high")
	if err != nil {
		return domain.RelatedLink{}, err
	}
	score, _, err := neo4j.GetRecordValue[float64](rec, "score")
	if err != nil {
		return domain.RelatedLink{}, err
	}
	created, _, err := neo4j.GetRecordValue[string](rec, "created_at")
	if err != nil {
		return domain.RelatedLink{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.RelatedLink{}, fmt.Errorf("parse created_at: %w", err)
	}
	return domain.RelatedLink{LowPMID: low, HighPMID: high, Score: score, CreatedAt: createdAt}, nil
}
