// Package reconcile turns one raw input (an archive name, a product code, or
// a free-text title) into an enriched GameRecord.
//
// A lookup consults the cache first. Fresh entries, negative ones included,
// are returned without touching the network. On a miss a code key is scraped,
// its tags are resolved through the dictionary, and whatever the dictionary
// cannot supply goes to the translator in a single batched call. Translation
// failures degrade to source text and never fail the item. Catalog misses are
// cached as negative entries; transient scrape failures are reported and not
// cached.
package reconcile
