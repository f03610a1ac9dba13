// Package storage persists the two small state documents the bot needs to
// survive restarts:
//
//   - the processed-set (bounded history of delivered insight ids)
//   - the checkpoint (watermark of the last delivered publication time)
//
// Loads are tolerant by contract: a missing, unreadable, or malformed
// document yields the empty structure, never an error. Saves are
// best-effort; a failed save means an item may be redelivered on the next
// run, which is an accepted risk.
package storage
