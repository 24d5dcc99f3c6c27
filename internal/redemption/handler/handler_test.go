package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bounty-server/internal/chatstate"
	"bounty-server/internal/observability"
	"bounty-server/internal/redemption/processor"

	"github.com/gin-gonic/gin"
)

type stubRedeemer struct {
	fn func(req processor.RedeemRequest) (processor.RedeemResult, error)

	mu       sync.Mutex
	requests []processor.RedeemRequest
}

func (s *stubRedeemer) Redeem(ctx context.Context, req processor.RedeemRequest) (processor.RedeemResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.fn(req)
}

type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", chatstate.ErrNoProgress
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		f.data[key] = "1"
	}
	return nil
}

func (f *fakeKV) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = "1"
	return true, nil
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func newChatRouter(redeemer *stubRedeemer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := observability.NewLogger()
	h := New(redeemer, chatstate.New(newFakeKV(), logger), logger)

	router := gin.New()
	router.POST("/redeem", h.HandleRedeem)
	router.POST("/chat", h.HandleChatEvent)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleRedeem(t *testing.T) {
	redeemer := &stubRedeemer{fn: func(req processor.RedeemRequest) (processor.RedeemResult, error) {
		return processor.RedeemResult{Outcome: processor.OutcomeSuccess, Amount: 20}, nil
	}}
	router := newChatRouter(redeemer)

	w := postJSON(t, router, "/redeem", gin.H{
		"phone_number": "+919876543210",
		"code":         "BNTYX7K2M9Q",
		"upi_id":       "asha@upi",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result processor.RedeemResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Outcome != processor.OutcomeSuccess || result.Amount != 20 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandleRedeem_MissingPhone(t *testing.T) {
	redeemer := &stubRedeemer{fn: func(req processor.RedeemRequest) (processor.RedeemResult, error) {
		t.Fatal("processor must not be called on validation failure")
		return processor.RedeemResult{}, nil
	}}
	router := newChatRouter(redeemer)

	w := postJSON(t, router, "/redeem", gin.H{"code": "BNTYX7K2M9Q"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleChatEvent_DropsRedeliveredMessages(t *testing.T) {
	redeemer := &stubRedeemer{fn: func(req processor.RedeemRequest) (processor.RedeemResult, error) {
		return processor.RedeemResult{Outcome: processor.OutcomeSuccess}, nil
	}}
	router := newChatRouter(redeemer)

	event := gin.H{
		"message_id":   "msg-1",
		"phone_number": "+919876543210",
		"text":         "BNTYX7K2M9Q",
	}

	first := postJSON(t, router, "/chat", event)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	second := postJSON(t, router, "/chat", event)
	var resp ChatEventResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "duplicate" {
		t.Errorf("expected duplicate status, got %q", resp.Status)
	}
	if len(redeemer.requests) != 1 {
		t.Errorf("redelivered message must not trigger a second redemption, got %d", len(redeemer.requests))
	}
}

func TestHandleChatEvent_CollectsMissingUPI(t *testing.T) {
	redeemer := &stubRedeemer{fn: func(req processor.RedeemRequest) (processor.RedeemResult, error) {
		if req.UPIID == "" {
			return processor.RedeemResult{Outcome: processor.OutcomeRejected, Message: "missing UPI ID"}, nil
		}
		return processor.RedeemResult{Outcome: processor.OutcomeSuccess, Amount: 10}, nil
	}}
	router := newChatRouter(redeemer)

	first := postJSON(t, router, "/chat", gin.H{
		"message_id":   "msg-1",
		"phone_number": "+919876543210",
		"text":         "BNTYX7K2M9Q",
	})
	var collecting ChatEventResponse
	if err := json.Unmarshal(first.Body.Bytes(), &collecting); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if collecting.Status != "collecting" {
		t.Fatalf("expected collecting status, got %q", collecting.Status)
	}

	second := postJSON(t, router, "/chat", gin.H{
		"message_id":   "msg-2",
		"phone_number": "+919876543210",
		"text":         "asha@upi",
	})
	var completed ChatEventResponse
	if err := json.Unmarshal(second.Body.Bytes(), &completed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if completed.Status != "completed" {
		t.Fatalf("expected completed status, got %q: %s", completed.Status, second.Body.String())
	}
	if completed.Result == nil || completed.Result.Outcome != processor.OutcomeSuccess {
		t.Errorf("expected SUCCESS result, got %+v", completed.Result)
	}

	// The follow-up message keeps the original code and adds the UPI
	last := redeemer.requests[len(redeemer.requests)-1]
	if last.Code != "BNTYX7K2M9Q" || last.UPIID != "asha@upi" {
		t.Errorf("unexpected follow-up request: %+v", last)
	}
}
