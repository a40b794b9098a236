// Package report renders run summaries, dry-run plans and dependency
// checks as terminal tables.
package report
