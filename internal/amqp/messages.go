package amqp

import (
	"encoding/json"
	"time"
)

// ExportEventMessage is the wire form of a completed-export
// notification. It carries enough for a downstream consumer to audit
// or mirror the export without reading the local store.
type ExportEventMessage struct {
	ExportID    string    `json:"export_id"`
	Template    string    `json:"template"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	RecordCount int       `json:"record_count"`
	Timestamp   time.Time `json:"timestamp"`
}

func (m *ExportEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportEventMessageFromJSON(data []byte) (*ExportEventMessage, error) {
	var msg ExportEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
