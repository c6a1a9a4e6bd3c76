package model

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/hupe1980/taskmesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completion emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a Generate call and returns the last response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		last Response
		got  bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			last, got = r, true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !got {
		return Response{}, errors.New("model returned no response")
	}

	return last, nil
}

// ErrNoScriptedResponse is returned by MockModel once its script is exhausted.
var ErrNoScriptedResponse = errors.New("mock model: no scripted response left")

// MockModel is an in-memory Model that replays scripted responses in order
// and records every request it receives.
type MockModel struct {
	info Info

	mu       sync.Mutex
	script   []mockTurn
	requests []Request
}

type mockTurn struct {
	resp Response
	err  error
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// AddResponse appends a complete response to the script.
func (m *MockModel) AddResponse(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockTurn{resp: resp})
	return m
}

// AddText appends a plain assistant text response.
func (m *MockModel) AddText(text string) *MockModel {
	return m.AddResponse(Response{
		Content:      core.NewTextContent(core.RoleAssistant, text),
		FinishReason: "stop",
	})
}

// AddToolCall appends a response with optional reasoning text followed by
// one tool call.
func (m *MockModel) AddToolCall(thought, name, arguments string) *MockModel {
	m.mu.Lock()
	id := "call_" + name + "_" + strconv.Itoa(len(m.script))
	m.mu.Unlock()

	var parts []core.Part
	if thought != "" {
		parts = append(parts, core.TextPart{Text: thought})
	}
	parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: arguments}})

	return m.AddResponse(Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: "tool_calls",
	})
}

// AddError appends a failing generation.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.script = append(m.script, mockTurn{err: err})
	return m
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Request(nil), m.requests...)
}

// Generate implements Model by popping the next scripted turn.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var (
		turn mockTurn
		ok   bool
	)
	if len(m.script) > 0 {
		turn, ok = m.script[0], true
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}

		switch {
		case !ok:
			errCh <- ErrNoScriptedResponse
		case turn.err != nil:
			errCh <- turn.err
		default:
			respCh <- turn.resp
		}
	}()

	return respCh, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
