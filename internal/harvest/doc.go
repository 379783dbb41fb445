// Package harvest runs PubMed harvests: search, dedup against the store,
// fetch, normalize and upsert. Grapher extends a stored article with its
// "similar articles" neighbors and records the scored links between them.
package harvest
