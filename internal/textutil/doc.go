// Package textutil provides text helpers shared by the pipeline and the CLI:
// script detection for deciding whether a title needs translation, title and
// filename sanitization, and token fingerprints for fuzzy title search.
//
// Fingerprints are term-frequency vectors. Latin and digit runs become word
// tokens; runs of kana or Han characters become overlapping bigrams because
// those scripts do not separate words with spaces.
package textutil
