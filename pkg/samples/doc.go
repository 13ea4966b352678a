// Package samples ships the classic distributed algorithms as embedded Lua scripts.
//
// Each sample names the graph family it is meant for (generic, directed, ring or
// acyclic); running it on another shape is allowed but may never quiesce.
package samples
