/*
Package distsim is a discrete-event simulator for distributed algorithms on user-drawn networks.

A network is a set of vertices (processes) joined by directed or undirected channels. An algorithm is written once, as three hooks that every process runs on its own: initialization, initiation (only on initiators) and message receipt. The simulator delivers messages along channels after a transit delay on a virtual clock, so runs are reproducible and never sleep.

# Concept

The Topology is the graph, the Sandbox holds the hooks of one algorithm, and the Engine binds a Process to every vertex for the duration of a run. Processes only see their own channels, by label, through the restricted Process API; they cannot reach other processes except by sending messages.

Algorithms are either Go code registered with sandbox.Define or Lua 5.1 scripts evaluated in a restricted interpreter. The classic textbook algorithms ship in package samples.

# Key Features

  - Deterministic Time: a virtual clock and a seeded random source drive every delay.
  - Non-FIFO Channels: jitter lets messages overtake each other, as on a real network.
  - Contained Failures: a failing hook moves only its process to "errored".
  - Live Editing: removing a vertex or channel during a run cancels the messages on it.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"
		"time"

		"github.com/aretw0/distsim"
	)

	func main() {
		sim := distsim.New(distsim.WithSeed(42))
		defer sim.Close()

		a := sim.AddVertex(0, 0)
		b := sim.AddVertex(100, 0)
		if _, err := sim.AddChannel(a, b, false); err != nil {
			log.Fatal(err)
		}
		_ = sim.SetInitiator(a, true)

		ctx := context.Background()
		if err := sim.RunSample(ctx, "echo"); err != nil {
			log.Fatal(err)
		}

		report, err := sim.Settle(ctx, time.Hour)
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range report.Processes {
			fmt.Println(p.Label, p.Status, p.Parent)
		}
	}
*/
package distsim
