package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event string     `json:"event"`
	Data  RawMessage `json:"data,omitempty"`
}

func TestRawMessagePassthrough(t *testing.T) {
	var f frame
	require.NoError(t, Unmarshal([]byte(`{"event":"task:created","data":{"id":7}}`), &f))
	assert.Equal(t, "task:created", f.Event)
	assert.JSONEq(t, `{"id":7}`, string(f.Data))

	out, err := Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"task:created","data":{"id":7}}`, string(out))
}

func TestUnmarshalInvalid(t *testing.T) {
	var f frame
	assert.Error(t, Unmarshal([]byte(`{"event"`), &f))
}
