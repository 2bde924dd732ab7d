// Package tags maps source-language genre tags onto target-language tags
// through a global dictionary and picks each record's primary tag.
//
// The dictionary lives in the cache database (see MappingStore). Each mapping
// carries a priority: newly learned translations get the configured default,
// and a curated table from configuration can raise specific tags so they win
// the primary-tag election. The highest priority wins; ties go to the tag that
// appears first on the record.
package tags
