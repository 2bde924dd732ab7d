// Package keys classifies raw user input into typed catalog keys.
//
// Classification is total: every string yields exactly one ItemKey. A code
// pattern anywhere in the width-folded input wins; anything else becomes a
// free-text title key.
package keys
