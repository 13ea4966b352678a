/*
Package domain contains the core domain models shared by every distsim component.

It defines the vocabulary of the simulation (vertex identities, process status, in-flight
message events, the graph export format) and the error taxonomy. This package is kept pure
and free of external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - VertexID: Position-based identity of a vertex. It is a display label, not a durable key:
    removing a vertex renumbers every vertex after it.
  - ProcessSnapshot: The externally visible state of one process (status, parent, fields).
  - MessageEvent: A message leaving or reaching a process, in simulated time.
  - GraphExport: The JSON-serializable form of a topology ({v, e, i}).
*/
package domain
