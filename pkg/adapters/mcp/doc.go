// Package mcp exposes simulation sessions as Model Context Protocol tools, so an
// assistant can build a topology, run a sample algorithm and read back the report.
// Bundled sample scripts are published as resources under distsim://samples/.
package mcp
