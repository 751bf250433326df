package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Handle("app:echo", func(_ context.Context, params json.RawMessage) (any, error) {
		return string(params), nil
	}))

	res := r.Invoke(context.Background(), "app:echo", json.RawMessage(`"hi"`))
	assert.True(t, res.Success)
	assert.Equal(t, `"hi"`, res.Data)
	assert.Empty(t, res.Error)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, json.RawMessage) (any, error) { return nil, nil }

	require.NoError(t, r.Handle("fs:loadProjects", noop))
	err := r.Handle("fs:loadProjects", noop)
	assert.ErrorIs(t, err, ErrChannelRegistered)
	assert.Equal(t, []string{"fs:loadProjects"}, r.Channels())
}

func TestRegistryUnknownChannel(t *testing.T) {
	res := NewRegistry().Invoke(context.Background(), "nope", nil)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err(), ErrUnknownChannel)
	assert.Contains(t, res.Error, "nope")
}

func TestRegistryHandlerError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Handle("x", func(context.Context, json.RawMessage) (any, error) { return nil, boom }))

	res := r.Invoke(context.Background(), "x", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
	assert.ErrorIs(t, res.Err(), boom)
}

func TestTyped(t *testing.T) {
	type params struct {
		ID string `json:"id"`
	}
	h := Typed(func(_ context.Context, p params) (any, error) {
		return p.ID, nil
	})

	got, err := h(context.Background(), json.RawMessage(`{"id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	got, err = h(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = h(context.Background(), json.RawMessage(`{"id":`))
	assert.ErrorIs(t, err, ErrBadParams)
}

func TestResponseJSON(t *testing.T) {
	data, err := json.Marshal(Response{Success: false, Error: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"x"}`, string(data))
}
