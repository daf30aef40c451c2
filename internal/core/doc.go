// Package core provides the reconciliation engine for bulk fee-payment imports.
//
// This package holds all domain logic independent of any transport or
// storage. It can be used by the web handlers, the reconcile CLI, or tests
// without modification.
//
// # Pipeline
//
// A file moves through a fixed sequence of stages:
//
//  1. [ParseTable] decodes CSV, XLSX or XLS into raw header-keyed rows
//  2. [Normalizer] maps headers and cycle labels onto [PaymentDraft] values
//     and drops rows without a cycle or a positive amount
//  3. [Resolver] matches each draft to one active student using an ordered
//     list of [NamedMatcher] strategies
//  4. [LedgerIndex] classifies each resolved draft as insert, update or skip
//     against the ledger snapshot loaded at job start
//  5. [BatchExecutor] commits inserts and updates in batches of
//     [DefaultBatchSize]
//  6. the row outcomes are folded into an [ImportResult]
//
// Every draft ends in exactly one of success, duplicate or error, so
// SuccessCount + DuplicateCount + ErrorCount == TotalRecords.
// NotFoundCount is the subset of errors caused by failed student resolution.
//
// # Jobs
//
// [Service.Submit] registers an [ImportJob] and runs the pipeline in the
// background; [Service.Status] returns a snapshot for polling. A job moves
// pending -> processing -> completed | failed and is frozen once terminal.
// Finished jobs are dropped by the retention sweeper after a configured age.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a code for support reference:
//
//   - FILE001-FILE005: file errors (size, type, empty, unreadable)
//   - STU001-STU002: student resolution and directory errors
//   - LED001-LED005: ledger read and write errors
//   - IMP001-IMP004: job errors (busy, expired, cancelled, timeout)
package core
