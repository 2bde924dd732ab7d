// Package preflight provides readiness checks for the directories, cache
// database, and remote services gamesort depends on.
//
// These checks run in two contexts:
//   - The reconcile command calls RunAll before a batch when --preflight is
//     given, and refuses to start if a required check fails.
//   - The CLI "gamesort status" command renders every Result as a table.
//
// The translator check is skipped when translation is disabled.
package preflight
