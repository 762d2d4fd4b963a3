// Package ingest implements the pledge upload reconciliation engine.
//
// This package is the heart of the service, containing all domain logic
// independent of any UI or transport layer. It can be used by web
// handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// One ingestion run flows through four stages:
//
//  1. A TableReader parses the uploaded file (CSV or spreadsheet) into
//     an ordered sequence of rows, each mapping header text to cell text.
//  2. The column resolver maps the file's literal headers onto the
//     canonical fields (name, mobile number, pledge, paid, remaining)
//     through a tolerant alias table. Resolution happens once per run.
//  3. Each row is normalized into a validated candidate: amounts are
//     parsed as decimals, remaining is recomputed as pledge - paid, and
//     the card capacity is derived from the paid amount.
//  4. The engine reconciles each candidate against the pledge store,
//     creating a record for an unseen mobile number or merging into an
//     existing one.
//
// # Partial failure
//
// A bad row never aborts a run. Every row emitted by the reader lands in
// exactly one of created, updated, or errored, and the RunReport keeps
// the identity
//
//	TotalRowsSeen == CreatedCount + UpdatedCount + ErrorCount
//
// Only structural problems (undecodable file, missing header row, an
// unresolvable required column) fail the whole run, and they do so
// before any row reaches the store.
package ingest
