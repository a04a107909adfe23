package eventbus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	data := map[string]string{"withdrawal_id": "w-1", "status": "rejected"}

	event, err := NewEvent("withdrawal.rejected", "payout-service", data)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "withdrawal.rejected", event.Type)
	assert.Equal(t, "payout-service", event.Source)
	assert.False(t, event.Timestamp.IsZero())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, data, decoded)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("withdrawal.rejected", "payout-service", make(chan int))
	assert.Error(t, err)
}
