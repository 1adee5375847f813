package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *XAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewXAIClient("test-key", "")
	c.baseURL = srv.URL
	return c
}

func responsesPayload(text string) string {
	return `{"output":[{"type":"message","content":[{"type":"output_text","text":` + mustJSON(text) + `}]}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestXAIClient_Generate(t *testing.T) {
	var gotAuth string
	var gotBody xaiRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(responsesPayload("<h2>ok</h2>")))
	})

	html, err := c.Generate(context.Background(), Params{Mode: ModeSearch, Query: "bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, "<h2>ok</h2>", html)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, xaiDefaultModel, gotBody.Model)
	require.Len(t, gotBody.Input, 1)
	assert.Contains(t, gotBody.Input[0].Content, "bitcoin")
	assert.Len(t, gotBody.Tools, 2)
}

func TestXAIClient_ChatCompletionsFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"<p>fallback</p>"}}]}`))
	})

	html, err := c.Generate(context.Background(), Params{Mode: ModeSearch, Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "<p>fallback</p>", html)
}

func TestXAIClient_EmptyResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[]}`))
	})

	html, err := c.Generate(context.Background(), Params{Mode: ModeSearch, Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, noResultsFallback, html)
}

func TestXAIClient_RetriesOn500(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(responsesPayload("<h2>ok</h2>")))
	})

	html, err := c.Generate(context.Background(), Params{Mode: ModeSearch, Query: "x"})
	require.NoError(t, err)
	assert.Equal(t, "<h2>ok</h2>", html)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestXAIClient_NoRetryOn400(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt"}}`))
	})

	_, err := c.Generate(context.Background(), Params{Mode: ModeSearch, Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad prompt")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestXAIClient_InvalidMode(t *testing.T) {
	c := NewXAIClient("k", "")
	_, err := c.Generate(context.Background(), Params{Mode: "nope"})
	assert.Error(t, err)
}
