// Package main hosts the gamesort CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into batch
// reconciliation runs, cache and tag dictionary maintenance, configuration
// scaffolding, and readiness checks. It centralizes configuration loading,
// logger construction, and the cache maintenance lock so subcommands can
// focus on presenting results.
//
// Keep this package lean: add new behavior to the internal packages first,
// then surface it through a command or flag here.
package main
