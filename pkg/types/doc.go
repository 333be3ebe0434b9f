// Package types defines the canonical entry model, the tagged value variant,
// session snapshots and the standard errors shared by the nvsedit packages.
package types
