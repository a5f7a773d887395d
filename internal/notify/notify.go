package notify

import "encoding/json"

// Event names broadcast to the realtime transport.
const (
	EventDocumentCreated              = "document-created"
	EventDocumentRenamed              = "document-renamed"
	EventDocumentDeleted              = "document-deleted"
	EventCollaboratorAdded            = "collaborator-added"
	EventCollaboratorPermissionUpdate = "collaborator-permission-updated"
	EventCollaboratorRemoved          = "collaborator-removed"
)

// Message is the wire shape posted to the transport control endpoint.
// Payload carries the event detail plus the recipient user ids captured
// when the event was enqueued, so delete events still reach the people
// who could see the document while it existed.
type Message struct {
	DocID   string          `json:"docId"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Actor identifies the user whose action produced an event.
type Actor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BuildPayload merges the event detail with the document id and the
// recipient snapshot into the payload stored on the outbox row.
func BuildPayload(documentID string, recipients []int64, detail map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(detail)+2)
	for k, v := range detail {
		merged[k] = v
	}
	merged["documentId"] = documentID
	merged["recipients"] = recipients
	return json.Marshal(merged)
}
