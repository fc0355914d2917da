package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/gemini-chat/backend/internal/handler/view"
	"github.com/zhouzirui/gemini-chat/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/gemini-chat/backend/internal/service/chat"
)

type echoResponder struct{}

func (echoResponder) StreamResponse(_ context.Context, _ []chat.Turn, userText string) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage("echo: "+userText, nil)}), nil
}

func setupRouter() (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService("Hi", func(_ context.Context, credential string) (chatservice.Responder, error) {
		if credential == "bad" {
			return nil, errors.New("unusable key")
		}
		return echoResponder{}, nil
	}, zap.NewNop())
	handler := New(chatSvc, view.ModelInfo{Provider: "gemini", Model: "gemini-1.5-flash"}, zap.NewNop())

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func decodeSession(t *testing.T, body *bytes.Buffer) view.SessionView {
	t.Helper()
	var got view.SessionView
	if err := json.NewDecoder(body).Decode(&got); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return got
}

func TestGetSessionShowsGreeting(t *testing.T) {
	r, _ := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	got := decodeSession(t, resp.Body)
	if got.Configured {
		t.Fatal("expected unconfigured session")
	}
	if len(got.Turns) != 1 || got.Turns[0].Content != "Hi" {
		t.Fatalf("unexpected turns: %+v", got.Turns)
	}
}

func TestConfigureValidCredential(t *testing.T) {
	r, _ := setupRouter()
	payload := []byte(`{"apiKey":"good"}`)

	req := httptest.NewRequest(http.MethodPut, "/session/credential", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := decodeSession(t, resp.Body); !got.Configured {
		t.Fatal("expected configured session")
	}
	if bytes.Contains(resp.Body.Bytes(), []byte("good")) {
		t.Fatal("credential must not be echoed back")
	}
}

func TestConfigureRejectedCredential(t *testing.T) {
	r, _ := setupRouter()

	for _, payload := range []string{`{"apiKey":"bad"}`, `{"apiKey":""}`, `not json`} {
		req := httptest.NewRequest(http.MethodPut, "/session/credential", bytes.NewReader([]byte(payload)))
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Fatalf("payload %s: expected 400, got %d", payload, resp.Code)
		}
	}
}

func TestResetRestoresGreeting(t *testing.T) {
	r, chatSvc := setupRouter()
	ctx := context.Background()
	if err := chatSvc.Configure(ctx, "good"); err != nil {
		t.Fatalf("Configure err: %v", err)
	}
	if _, err := chatSvc.Submit(ctx, "A", nil); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/session/reset", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	got := decodeSession(t, resp.Body)
	if len(got.Turns) != 1 || got.Turns[0].Content != "Hi" {
		t.Fatalf("expected only greeting, got %+v", got.Turns)
	}
}
