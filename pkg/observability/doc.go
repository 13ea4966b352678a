/*
Package observability provides lifecycle hooks for monitoring the simulation engine.

It includes Prometheus metrics over message and process events, structured audit
logging, and a bounded event recorder for streaming recent activity to a UI.
*/
package observability
