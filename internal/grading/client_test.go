package grading

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTongyiClientEvaluate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		var req TongyiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Input.Messages)

		resp := TongyiResponse{
			Output: TongyiOutput{
				Choices: []TongyiChoice{
					{Message: Message{Role: "assistant", Content: "Q1: question - fine [Right]"}},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewTongyiClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	text, err := client.Evaluate(context.Background(), "grade this")
	require.NoError(t, err)
	assert.Equal(t, "Q1: question - fine [Right]", text)
}

func TestTongyiClientEmptyPrompt(t *testing.T) {
	client, err := NewTongyiClient(WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = client.Evaluate(context.Background(), "")
	require.Error(t, err)

	gradingErr, ok := err.(GradingError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeEmptyPrompt, gradingErr.Code)
}

func TestTongyiClientRequiresAPIKey(t *testing.T) {
	_, err := NewTongyiClient()
	require.Error(t, err)
}

func TestNewClientFactory(t *testing.T) {
	client, err := NewClient("tongyi", WithAPIKey("test-key"))
	require.NoError(t, err)
	assert.Equal(t, ModelQwenPlus, client.Name())

	_, err = NewClient("unregistered")
	assert.Error(t, err)
}
