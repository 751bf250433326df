// Package ipc maps request/response channel names onto handlers and wraps
// every result in a {success, data, error} envelope.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrChannelRegistered = errors.New("channel already registered")
	ErrUnknownChannel    = errors.New("unknown channel")
	ErrBadParams         = errors.New("bad params")
)

// HandlerFunc serves one channel. params is the raw JSON request body and
// may be empty.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Response is the envelope returned for every invocation.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

// Err is the handler error behind a failed response.
func (r Response) Err() error {
	return r.err
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for channel. Each channel can be registered once.
func (r *Registry) Handle(channel string, fn HandlerFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[channel]; ok {
		return fmt.Errorf("%w: %s", ErrChannelRegistered, channel)
	}
	r.handlers[channel] = fn
	return nil
}

func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

func (r *Registry) Invoke(ctx context.Context, channel string, params json.RawMessage) Response {
	r.mu.RLock()
	fn, ok := r.handlers[channel]
	r.mu.RUnlock()

	if !ok {
		return failure(fmt.Errorf("%w: %s", ErrUnknownChannel, channel))
	}

	data, err := fn(ctx, params)
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Data: data}
}

// Decode unmarshals params into v. Empty params leave v untouched.
func Decode(params json.RawMessage, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadParams, err)
	}
	return nil
}

// Typed adapts a function taking decoded params into a HandlerFunc.
func Typed[P any](fn func(ctx context.Context, p P) (any, error)) HandlerFunc {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var p P
		if err := Decode(params, &p); err != nil {
			return nil, err
		}
		return fn(ctx, p)
	}
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error(), err: err}
}
