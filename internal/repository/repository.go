// Package repository provides data access interfaces and implementations
// for harvested PubMed articles and their related-article links.
//
// # Repository Interfaces
//
//   - ArticleRepository: normalized article records keyed by PMID
//   - LinkRepository: undirected, scored links between two PMIDs
//
// PostgreSQL implementations live in this package. The sqlitestore subpackage
// provides an embedded store for local CLI runs and the graphstore package
// provides a Neo4j LinkRepository.
//
// # Error Handling
//
// Methods return errors from the domain package:
//
//   - domain.ErrNotFound: the article does not exist
//   - domain.ErrAlreadyExists: an article with the PMID is already stored
//   - domain.ErrDuplicateEdge: the canonical link pair is already stored
//   - domain.ErrPersistence: any other store failure on link writes
//
// # Transactions
//
// Repositories accept DBTX, so a pgx.Tx from database.DB.WithTransaction
// can be passed instead of the pool. PgArticleRepository.Upsert does this
// itself when it was built on a *database.DB:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    return repository.NewPgArticleRepository(tx).Update(ctx, article)
//	})
package repository

import (
	"github.com/helixir/pubmed-harvester/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// PostgreSQL error codes.
const (
	pgUniqueViolation = "23505"
)

// applyPaginationDefaults normalizes limit and offset values for filter queries.
// It clamps limit to [1, maxFilterLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
