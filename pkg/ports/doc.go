/*
Package ports defines the driven ports (interfaces) of the simulation engine.

These interfaces decouple the core from external implementations, allowing the engine to
work with various renderers, storage backends and algorithm sources.

# Key Interfaces

  - Renderer: One-way visual notifications (transits, processing fill, status, parents).
  - TopologyStore: Persists named topologies in their export form.
  - AlgorithmLoader: Resolves algorithm scripts by name (sample library, directory).
  - DistributedLocker: Provides distributed locking for concurrent store writes.
*/
package ports
