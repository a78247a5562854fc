package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/example/go-pocket-bpe/internal/testutil"
)

// newTestHandler returns a handler over the shared sample model.
func newTestHandler(t *testing.T, optFns ...Option) http.Handler {
	t.Helper()

	return NewHandler(testutil.TrainSample(t), optFns...)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// ParseLogLevel
// ---------------------------------------------------------------------------

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"ERROR", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLogLevel(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// /health and /model
// ---------------------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status field = %q; want %q", body["status"], "ok")
	}
}

func TestHandleModel(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/model", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if body["vocab_size"] <= 0 {
		t.Errorf("vocab_size = %d; want > 0", body["vocab_size"])
	}

	if body["merges_count"] <= 0 {
		t.Errorf("merges_count = %d; want > 0", body["merges_count"])
	}
}

// ---------------------------------------------------------------------------
// POST /encode
// ---------------------------------------------------------------------------

func TestHandleEncode_RoundTripsThroughDecode(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/encode",
		`{"text": "low <|eot|> slow", "allowed_special": ["<|eot|>"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("encode status = %d, body %s", rec.Code, rec.Body.String())
	}

	var enc encodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatalf("unmarshal encode response: %v", err)
	}

	if len(enc.IDs) == 0 {
		t.Fatal("expected non-empty id sequence")
	}

	idsJSON, err := json.Marshal(decodeRequest{IDs: enc.IDs})
	if err != nil {
		t.Fatalf("marshal decode request: %v", err)
	}

	rec = postJSON(t, h, "/decode", string(idsJSON))
	if rec.Code != http.StatusOK {
		t.Fatalf("decode status = %d, body %s", rec.Code, rec.Body.String())
	}

	var dec decodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dec); err != nil {
		t.Fatalf("unmarshal decode response: %v", err)
	}

	if dec.Text != "low <|eot|> slow" {
		t.Errorf("round trip = %q; want %q", dec.Text, "low <|eot|> slow")
	}
}

func TestHandleEncode_EmptyTextYieldsEmptyIDs(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/encode", `{"text": ""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var enc encodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &enc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if want := []int{}; !reflect.DeepEqual(enc.IDs, want) {
		t.Errorf("IDs = %v; want empty", enc.IDs)
	}
}

func TestHandleEncode_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"method not allowed", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid JSON", http.MethodPost, "{", http.StatusBadRequest},
		{"unknown character", http.MethodPost, `{"text": "xyz"}`, http.StatusUnprocessableEntity},
		{"unregistered special", http.MethodPost,
			`{"text": "<|bos|>", "allowed_special": ["<|bos|>"]}`, http.StatusUnprocessableEntity},
	}

	h := newTestHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/encode", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestHandleEncode_TextTooLarge(t *testing.T) {
	h := newTestHandler(t, WithMaxTextBytes(4))

	rec := postJSON(t, h, "/encode", `{"text": "ababab"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d; want 413", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// POST /decode
// ---------------------------------------------------------------------------

func TestHandleDecode_UnknownID(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h, "/decode", `{"ids": [0, 9999]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422 (body %s)", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !strings.Contains(body["error"], "9999") {
		t.Errorf("error %q does not name the offending id", body["error"])
	}
}

func TestHandleDecode_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/decode", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d; want 405", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// error mapping
// ---------------------------------------------------------------------------

type failingCodec struct{ err error }

func (f *failingCodec) Encode(string, []string) ([]int, error) { return nil, f.err }
func (f *failingCodec) Decode([]int) (string, error)           { return "", f.err }
func (f *failingCodec) VocabSize() int                         { return 0 }
func (f *failingCodec) MergesCount() int                       { return 0 }

func TestTokenizeErrorStatus_UnknownErrorIsServerFault(t *testing.T) {
	h := NewHandler(&failingCodec{err: http.ErrAbortHandler})

	rec := postJSON(t, h, "/encode", `{"text": "a"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", rec.Code)
	}
}
