// Package project holds the record shared by every agent in a pipeline run.
//
// Record Lifecycle:
//
// A Record is created from the normalized user goal and handed, by pointer,
// to one agent at a time. Fields fill in as phases complete:
//   - description: fixed at creation
//   - scope: set once by the scoping phase
//   - external URLs: set once by scoping, then only narrowed by validation
//   - code: replaced on every generation or fix cycle
//   - endpoint schema: set once after route extraction
//
// Reading a field before its phase ran returns ErrPhaseIncomplete from the
// Require* accessors. Setting a set-once field twice returns ErrAlreadySet.
package project
