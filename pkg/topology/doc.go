/*
Package topology holds the graph a simulation runs on: vertices (future processes) and the
directed or undirected channels between them.

Vertices live in an ordered arena. A vertex's ID is its position in that arena, so removing a
vertex renumbers every vertex after it; IDs are display labels, not durable keys. Sample
algorithms print and compare these IDs, which is why the renumbering is preserved.

Undirected channels are a single Channel object registered as outgoing and incoming on both
endpoints. At most one channel exists per connected pair.
*/
package topology
