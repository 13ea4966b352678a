package domain

import "time"

// Transit describes one in-flight message for a renderer: a marker moving from one
// point to another over a simulated duration.
type Transit struct {
	From     VertexID      `json:"from"`
	To       VertexID      `json:"to"`
	Channel  string        `json:"channel"`
	Start    Point         `json:"start"`
	End      Point         `json:"end"`
	Duration time.Duration `json:"duration"`
	Marker   string        `json:"marker,omitempty"`
}

// InFlightMessage is a message between send and delivery.
type InFlightMessage struct {
	From     VertexID      `json:"from"`
	To       VertexID      `json:"to"`
	Channel  string        `json:"channel"`
	Payload  any           `json:"payload,omitempty"`
	SentAt   time.Duration `json:"sent_at"`
	ArriveAt time.Duration `json:"arrive_at"`
}
