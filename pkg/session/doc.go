/*
Package session runs several named simulations side by side.

It keeps one Simulator per session, persists topologies through a ports.TopologyStore,
and serializes store writes per topology name, optionally across replicas with a
distributed lock.
*/
package session
