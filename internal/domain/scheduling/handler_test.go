package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type toolResponse struct {
	Status  string          `json:"status"`
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func callTool(t *testing.T, h echo.HandlerFunc, body string) (*httptest.ResponseRecorder, toolResponse) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp toolResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHandler_BookWithAliases(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	rec, resp := callTool(t, h.Book, `{"patientId":"ID: 1001","doctor\r\n":"doctr smth","appointment_date":"2025-06-02","slot":"9:00 AM"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resp.Status != "success" {
		t.Fatalf("expected success, got %+v", resp)
	}
	var res BookResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Doctor != "Dr. Smith" || res.Time != "09:00" || res.Status != StatusScheduled {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHandler_BookFailuresAnswer200(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	tests := []struct {
		name string
		body string
		kind string
	}{
		{"missing time", `{"patient_id":1001,"doctor_name":"Smith","date":"2025-06-02"}`, "InvalidTemporalInput"},
		{"bad time", `{"patient_id":1001,"doctor_name":"Smith","date":"2025-06-02","time":"noonish"}`, "InvalidTemporalInput"},
		{"sunday", `{"patient_id":1001,"doctor_name":"Smith","date":"2025-06-08","time":"10:00"}`, "ClosedDay"},
		{"no patient id", `{"patient_id":"unknown","doctor_name":"Smith","date":"2025-06-02","time":"10:00"}`, "InvalidRequest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := callTool(t, h.Book, tt.body)
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if resp.Status != "error" || resp.Kind != tt.kind {
				t.Errorf("expected error kind %s, got %+v", tt.kind, resp)
			}
			if resp.Message == "" {
				t.Error("expected a message for the caller")
			}
		})
	}
}

func TestHandler_MalformedBody(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"patient_id":`))
	c := e.NewContext(req, httptest.NewRecorder())

	err := h.Book(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected HTTP 400, got %v", err)
	}
}

func TestHandler_StorageErrorIs503(t *testing.T) {
	f := newFixture()
	f.appts.err = errors.New("connection refused")
	h := NewHandler(f.svc, 1)

	rec, resp := callTool(t, h.Cancel, `{"id":1001}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if resp.Kind != "StorageError" {
		t.Errorf("expected StorageError, got %+v", resp)
	}
}

func TestHandler_RescheduleAndCancelFlow(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	if _, resp := callTool(t, h.Book, `{"patient_id":1001,"doctor_name":"Smith","date":"2025-06-02","time":"09:00"}`); resp.Status != "success" {
		t.Fatalf("book failed: %+v", resp)
	}
	_, resp := callTool(t, h.Reschedule, `{"patient_id":"1001","date":"2025-06-03","time":"10:00"}`)
	if resp.Status != "success" {
		t.Fatalf("reschedule failed: %+v", resp)
	}
	_, resp = callTool(t, h.Cancel, `{"patientId":1001}`)
	if resp.Status != "success" {
		t.Fatalf("cancel failed: %+v", resp)
	}
	_, resp = callTool(t, h.Cancel, `{"patient_id":1001}`)
	if resp.Kind != "NotFound" {
		t.Errorf("expected NotFound on second cancel, got %+v", resp)
	}
}

func TestHandler_Availability(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	_, resp := callTool(t, h.Availability, `{"doctor":"smith","day":"2025-06-02","branch_id":""}`)
	if resp.Status != "success" {
		t.Fatalf("expected success, got %+v", resp)
	}
	var res AvailabilityResult
	if err := json.Unmarshal(resp.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.AvailableSlots) != 16 {
		t.Errorf("expected 16 slots, got %d", len(res.AvailableSlots))
	}

	_, resp = callTool(t, h.Availability, `{"doctor_name":"smith","date":"June 2nd"}`)
	if resp.Kind != "InvalidTemporalInput" {
		t.Errorf("expected InvalidTemporalInput, got %+v", resp)
	}
}

func TestHandler_BookTestMissingDate(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc, 1)

	_, resp := callTool(t, h.BookTest, `{"patient_id":1001,"test":"ECG","time":"09:00"}`)
	if resp.Kind != "InvalidTemporalInput" || resp.Message != testDateTimePrompt {
		t.Errorf("unexpected response %+v", resp)
	}
}
