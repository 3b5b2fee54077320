package observability

type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// WSEvent describes a websocket lifecycle transition.
type WSEvent struct {
	Kind       string `json:"kind"`
	Channel    string `json:"channel"`
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

// Identity describes who owns a websocket connection.
type Identity struct {
	UserID   int64  `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

// WSPayload is the payload of ws_events envelopes.
type WSPayload struct {
	WS       WSEvent  `json:"ws"`
	Identity Identity `json:"identity"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

// WSRoutingKey is the AMQP routing key for ws lifecycle events of a kind.
func WSRoutingKey(kind string) string {
	return "ws_events." + kind
}
