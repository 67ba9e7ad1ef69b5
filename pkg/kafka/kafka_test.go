package kafka

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type docEvent struct {
	Op      string `json:"op"`
	Project string `json:"project"`
}

func TestDecodeJSON(t *testing.T) {
	ev, err := DecodeJSON[docEvent]([]byte(`{"op":"upsert","project":"qnetvo"}`))
	require.NoError(t, err)
	assert.Equal(t, docEvent{Op: "upsert", Project: "qnetvo"}, ev)

	_, err = DecodeJSON[docEvent]([]byte(`{not json`))
	assert.True(t, errors.Is(err, ErrSkip))
}

func TestEncodeKeepsKeys(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "qnetvo", Value: docEvent{Op: "delete", Project: "qnetvo"}},
		{Key: "other", Value: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "qnetvo", string(msgs[0].Key))
	assert.JSONEq(t, `{"op":"delete","project":"qnetvo"}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}
