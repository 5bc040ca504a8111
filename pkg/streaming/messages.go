package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// Message type constants matching the render streaming protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypePlace        = "place"
	TypeMove         = "move"
	TypeRemove       = "remove"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the client's acknowledgement response. Ref carries the
// asset id for place acks. OK is false when the client could not load the
// visual, with Error describing why.
type AckMessage struct {
	Type  string `json:"type"` // always "ack"
	For   string `json:"for"`  // the message type being acknowledged
	Ref   string `json:"ref,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// StartSessionPayload announces a session and its catalog.
type StartSessionPayload struct {
	SessionID   string `json:"sessionId"`
	Name        string `json:"name"`
	CatalogName string `json:"catalogName"`
	AssetCount  int    `json:"assetCount"`
}

// PlacePayload asks the client to create a visual.
type PlacePayload struct {
	AssetID     string    `json:"assetId"`
	Name        string    `json:"name"`
	AssetFile   string    `json:"assetFile"`
	Translation core.Vec3 `json:"translation"`
	Scale       core.Vec3 `json:"scale"`
	Yaw         float64   `json:"yaw"`
}

// MovePayload repositions an existing visual.
type MovePayload struct {
	AssetID     string    `json:"assetId"`
	Translation core.Vec3 `json:"translation"`
}

// RemovePayload deletes a visual.
type RemovePayload struct {
	AssetID string `json:"assetId"`
}

// NewPlacePayload builds the place message for p.
func NewPlacePayload(p core.Placement) PlacePayload {
	return PlacePayload{
		AssetID:     p.AssetID,
		Name:        p.Name,
		AssetFile:   p.AssetFile,
		Translation: p.Translation,
		Scale:       p.Visual.Scale,
		Yaw:         p.Visual.Yaw,
	}
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
