// Package types holds values shared across segwire packages.
package types //nolint:revive // types is a valid package name

// Version is the segwire release version.
// The stamp layout and frame encoding are versioned with it.
const Version = "0.1.0"
