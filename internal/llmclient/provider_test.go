package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"archie/internal/tester"
)

func TestClaudeProvider_Complete(t *testing.T) {
	var got claudeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tester.Eq(t, r.Header.Get("x-api-key"), "secret")
		tester.True(t, len(r.Header.Get("anthropic-version")) > 0, "anthropic-version header missing")
		tester.NoErr(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"[{\"id\":\"db\"}]"}]}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider("secret", srv.URL)
	out, err := p.Complete(context.Background(), Request{Model: "claude-x", Prompt: "hello"})
	tester.NoErr(t, err)
	tester.Eq(t, out, `[{"id":"db"}]`)
	tester.Eq(t, got.Model, "claude-x")
	tester.Eq(t, got.MaxTokens, 8192)
	tester.Eq(t, len(got.Messages), 1)
	tester.Eq(t, got.Messages[0].Content, "hello")
}

func TestChatCompletionsProvider_RequestsJSONObject(t *testing.T) {
	var got chatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tester.Eq(t, r.Header.Get("Authorization"), "Bearer key")
		tester.NoErr(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"components\":[]}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", srv.URL)
	out, err := p.Complete(context.Background(), Request{Model: "gpt", Prompt: "design"})
	tester.NoErr(t, err)
	tester.Eq(t, out, `{"components":[]}`)
	tester.Eq(t, got.ResponseFormat["type"], "json_object")
	tester.Eq(t, len(got.Messages), 2)
	tester.Eq(t, got.Messages[0].Role, "system")
	tester.Eq(t, p.Name(), ProviderOpenAI)
	tester.Eq(t, NewGroqProvider("k", srv.URL).Name(), ProviderGroq)
}

func TestChatCompletionsProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewGroqProvider("k", srv.URL).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	tester.ErrIs(t, err, ErrEmptyResponse)
}

func TestStatusError_Permanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/unauthorized" {
			w.WriteHeader(http.StatusUnauthorized)
		} else {
			w.WriteHeader(http.StatusTooManyRequests)
		}
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	_, err := NewClaudeProvider("k", srv.URL+"/unauthorized").Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	var perm *PermanentError
	tester.True(t, errors.As(err, &perm))

	_, err = NewClaudeProvider("k", srv.URL+"/busy").Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	tester.True(t, err != nil, "expected an error")
	tester.False(t, errors.As(err, &perm))
}

type recordingRegistrar struct {
	specs []ProviderRegistration
}

func (r *recordingRegistrar) Register(spec ProviderRegistration) error {
	r.specs = append(r.specs, spec)
	return nil
}

func TestRegisterConfigured_SkipsMissingKeys(t *testing.T) {
	reg := &recordingRegistrar{}
	err := RegisterConfigured(reg, []ProviderConfig{
		{Name: "Claude", APIKey: "k", Model: "claude-custom"},
		{Name: ProviderOpenAI},
		{Name: "unknown", APIKey: "k"},
		{Name: ProviderGroq, APIKey: "k", FastModel: "tiny"},
	})
	tester.NoErr(t, err)
	tester.Eq(t, len(reg.specs), 2)

	tester.Eq(t, reg.specs[0].Name, ProviderClaude)
	tester.Eq(t, reg.specs[0].Models[ModelLevelHigh], "claude-custom")
	tester.Eq(t, reg.specs[0].Models[ModelLevelLow], DefaultModel(ProviderClaude, ModelLevelLow))

	tester.Eq(t, reg.specs[1].Name, ProviderGroq)
	tester.Eq(t, reg.specs[1].Models[ModelLevelLow], "tiny")
	tester.Eq(t, reg.specs[1].Models[ModelLevelHigh], DefaultModel(ProviderGroq, ModelLevelHigh))
}
