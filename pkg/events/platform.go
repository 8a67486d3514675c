package events

// PlatformMetadataType tags informational platform messages that carry no
// completion signal. The event router drops them unconditionally.
const PlatformMetadataType = "workflow_metadata"

// PlatformEvent is the envelope for inbound cluster/platform messages:
//
//	{type, payload: {workflow_id, event, content: {status, result?, message?}}}
//
// payload.workflow_id is the external correlation id suspended steps are
// matched against; payload.event names the platform event type used by
// event triggers. The payload stays a raw map so trigger filters can
// traverse arbitrary nesting.
type PlatformEvent struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (e PlatformEvent) GetType() EventType { return PlatformEventReceived }

// IsMetadata reports whether the envelope is a workflow_metadata message.
func (e *PlatformEvent) IsMetadata() bool {
	return e.Type == PlatformMetadataType
}

// CorrelationID returns payload.workflow_id, the key suspended steps wait on.
func (e *PlatformEvent) CorrelationID() string {
	s, _ := e.Payload["workflow_id"].(string)

	return s
}

// EventName returns payload.event, the platform event type.
func (e *PlatformEvent) EventName() string {
	s, _ := e.Payload["event"].(string)

	return s
}

// EventContent is the parsed payload.content block.
type EventContent struct {
	Status  string
	Result  map[string]any
	Message string
}

// Content parses payload.content. Missing fields come back zero-valued.
func (e *PlatformEvent) Content() EventContent {
	var content EventContent

	raw, ok := e.Payload["content"].(map[string]any)
	if !ok {
		return content
	}

	content.Status, _ = raw["status"].(string)
	content.Message, _ = raw["message"].(string)
	content.Result, _ = raw["result"].(map[string]any)

	return content
}
