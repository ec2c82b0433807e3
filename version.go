// Package parity is the root of the parity differential-testing harness.
package parity

// Version is the harness version reported by the CLI and the MCP server.
const Version = "0.1.0"
