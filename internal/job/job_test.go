package job

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	a := NewRequest(KindTranslate, []byte(`{"process_graph": {}}`))
	b := NewRequest(KindValidate, nil)

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, KindTranslate, a.Kind)
	assert.False(t, a.ReceivedAt.IsZero())
}

func TestQueuedResult(t *testing.T) {
	req := NewRequest(KindValidate, nil)
	res := Queued(req)
	assert.Equal(t, req.ID, res.ID)
	assert.Equal(t, StatusQueued, res.Status)
	assert.False(t, res.Failed())

	res.Status = StatusFailed
	assert.True(t, res.Failed())
}

func TestResultJSONOmitsEmpty(t *testing.T) {
	data, err := json.Marshal(&Result{ID: "j1", Kind: KindTranslate, Status: StatusDone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "j1", "kind": "translate", "status": "done", "duration_ms": 0}`, string(data))
}
