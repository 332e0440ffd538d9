package types

// LinkStatus is published (retained) on every link state transition.
type LinkStatus struct {
	State string `json:"state"` // "disconnected", "connecting", "connected"
	From  string `json:"from"`
	Event string `json:"event"`
	TSms  int64  `json:"ts_ms"`
}

// SpanStatus describes the datagram socket span (retained).
type SpanStatus struct {
	SpanID string `json:"span_id"`
	Open   bool   `json:"open"`
	Port   int    `json:"port"`
	Reason string `json:"reason,omitempty"` // why a span closed
	TSms   int64  `json:"ts_ms"`
}

// Datagram is one received payload, treated as text. Ingestion is one-way.
type Datagram struct {
	SpanID string `json:"span_id"`
	From   string `json:"from"`
	Text   string `json:"text"`
	TSms   int64  `json:"ts_ms"`
}

// CounterValue is one item taken off the counter work queue.
type CounterValue struct {
	Value int   `json:"value"`
	TSms  int64 `json:"ts_ms"`
}
