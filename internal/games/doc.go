// Package games defines the enriched game document shared by the cache store,
// the reconciliation pipeline, and the batch coordinator.
//
// A GameRecord with ErrorKind set is a negative cache entry: it remembers that
// a lookup failed permanently so the scraper is not asked again until the entry
// goes stale. Consumers must check ErrorKind before trusting title or tag fields.
package games
