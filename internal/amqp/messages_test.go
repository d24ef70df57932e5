package amqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportEventMessageWireFormat(t *testing.T) {
	msg := ExportEventMessage{
		ExportID:    "exp-1",
		Template:    "tax-report",
		Destination: "dropbox",
		Status:      "completed",
		RecordCount: 12,
		Timestamp:   time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC),
	}

	body, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := ExportEventMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg, *got)
}

// Malformed deliveries are rejected by the consume loop without
// requeueing; the decode error is what drives that branch.
func TestExportEventMessageFromJSONRejectsGarbage(t *testing.T) {
	_, err := ExportEventMessageFromJSON([]byte("not json"))
	assert.Error(t, err)
}
