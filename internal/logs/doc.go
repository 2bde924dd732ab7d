// Package logs reads back the JSON log file written by the logging package.
//
// Tail returns the last N lines or everything past a byte offset, and can
// wait for new lines so `gamesort logs --follow` polls without rereading the
// file. Filter and Format turn raw JSON lines into the compact console view,
// narrowed by level, component, item key, or batch task id.
package logs
