package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newVLTestServer 创建返回固定转写文本的模拟API服务
func newVLTestServer(t *testing.T, text string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer ")

		var req TongyiVLRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		require.NotNil(t, req.Input)
		require.NotEmpty(t, req.Input.Messages)

		resp := TongyiVLResponse{
			RequestID: "test-request",
			Output: TongyiVLOutput{
				Choices: []TongyiVLChoice{
					{
						FinishReason: "stop",
						Message: VLMessage{
							Role:    "assistant",
							Content: []VLContent{{Text: text}},
						},
					},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestTongyiVLClientTranscribe(t *testing.T) {
	server := newVLTestServer(t, "Q1. What is gravity?\nIt pulls objects down.")
	defer server.Close()

	client, err := NewTongyiVLClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	text, err := client.Transcribe(context.Background(), "https://example.com/page1.png", "physics")
	require.NoError(t, err)
	assert.Equal(t, "Q1. What is gravity?\nIt pulls objects down.", text)
}

func TestTongyiVLClientEmptyImage(t *testing.T) {
	client, err := NewTongyiVLClient(WithAPIKey("test-key"))
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), "", "general")
	require.Error(t, err)

	ocrErr, ok := err.(OCRError)
	require.True(t, ok, "error should be OCRError")
	assert.Equal(t, ErrCodeEmptyImage, ocrErr.Code)
}

func TestTongyiVLClientRequiresAPIKey(t *testing.T) {
	_, err := NewTongyiVLClient()
	require.Error(t, err)

	ocrErr, ok := err.(OCRError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidAPIKey, ocrErr.Code)
}

func TestTongyiVLClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "InvalidParameter",
			"message": "image format not supported",
		})
	}))
	defer server.Close()

	client, err := NewTongyiVLClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	_, err = client.Transcribe(context.Background(), "https://example.com/page.png", "general")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image format not supported")
}

func TestTongyiVLClientRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := TongyiVLResponse{
			Output: TongyiVLOutput{
				Choices: []TongyiVLChoice{
					{Message: VLMessage{Content: []VLContent{{Text: "recovered"}}}},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewTongyiVLClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
	)
	require.NoError(t, err)

	text, err := client.Transcribe(context.Background(), "https://example.com/page.png", "general")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, attempts)
}

func TestNewClientFactory(t *testing.T) {
	client, err := NewClient("tongyi", WithAPIKey("test-key"))
	require.NoError(t, err)
	assert.Equal(t, ModelQwenVLPlus, client.Name())

	_, err = NewClient("unknown")
	require.Error(t, err)
}

func TestPromptForSubject(t *testing.T) {
	mathPrompt := PromptForSubject("Physics")
	assert.True(t, strings.Contains(mathPrompt, "Math rules"), "math subjects get the math rules")

	generalPrompt := PromptForSubject("history")
	assert.False(t, strings.Contains(generalPrompt, "Math rules"))
	assert.Contains(t, generalPrompt, "question numbering")
}
