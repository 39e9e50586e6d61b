package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGroqGenerateContent(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{
			"model": "llama-3.3-70b-versatile",
			"choices": [{"message": {"content": "{\"ok\": true}"}}],
			"usage": {"prompt_tokens": 21, "completion_tokens": 5, "total_tokens": 26}
		}`))
	}))
	defer server.Close()

	c := newGroqClient("secret", server.URL, server.Client())
	resp, err := c.GenerateContent(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotBody["model"] != groqModel {
		t.Errorf("Expected model %s, got %v", groqModel, gotBody["model"])
	}
	if resp.Content != `{"ok": true}` {
		t.Errorf("Unexpected content %q", resp.Content)
	}
	if resp.Usage.PromptTokens != 21 || resp.Usage.CompletionTokens != 5 || resp.Usage.TotalTokens != 26 {
		t.Errorf("Unexpected usage %+v", resp.Usage)
	}
}

func TestGroqErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "Status", status: http.StatusTooManyRequests, body: "slow down", wantErr: "status=429"},
		{name: "NoChoices", status: http.StatusOK, body: `{"choices": []}`, wantErr: "no content generated"},
		{name: "BadJSON", status: http.StatusOK, body: `{`, wantErr: "failed to decode response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newGroqClient("k", server.URL, server.Client()).GenerateContent(context.Background(), "p")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`:                   `{"a":1}`,
		"```json\n{\"a\":1}\n```":   `{"a":1}`,
		"  ```\n{\"a\":1}\n```  \n": `{"a":1}`,
	}
	for in, want := range tests {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageFormat(t *testing.T) {
	if f, err := imageFormat("image/JPEG"); err != nil || f != "jpeg" {
		t.Errorf("Expected jpeg, got %q, %v", f, err)
	}
	if _, err := imageFormat("image/gif"); err == nil {
		t.Error("Expected an error for gif")
	}
}
