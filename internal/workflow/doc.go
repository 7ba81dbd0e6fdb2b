// Package workflow runs a conversion over a file or directory of books.
//
// A run takes the state-directory lock, discovers primary and HD containers,
// analyses every HD container once to build the directory table, and then
// fans the books out to a bounded worker pool. Each book goes through
// engine.Run independently: a failed book is reported in the Summary and
// never stops its siblings. Outcomes are recorded in the history database and
// the Prometheus textfile when those are enabled.
//
// Cancelling the context stops new books from starting. Books already in
// progress finish normally; books that never started are reported as
// canceled.
package workflow
