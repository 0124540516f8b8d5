// Package billing holds the analytics engine's read-only view of customer
// subscription state: statuses, billing intervals, minor-unit Money, and the
// monthly price normalization used everywhere MRR is computed.
//
// The engine consumes these records through the CustomerSource interface and
// never writes them; the billing domain that produces them is an external
// collaborator. PGStore is the production implementation, MemoryStore backs
// unit tests.
package billing
