package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Page(t *testing.T) {
	p := FromContext(newContext("/?limit=10&page=3"))
	if p.Offset != 20 {
		t.Errorf("expected offset 20 for page 3, got %d", p.Offset)
	}

	p = FromContext(newContext("/?limit=10&page=3&offset=5"))
	if p.Offset != 5 {
		t.Errorf("explicit offset should win over page, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(newContext("/?limit=500"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	p := FromContext(newContext("/?offset=-5"))
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, 20, 0)
	if resp.Total != 50 {
		t.Errorf("expected total 50, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected HasMore to be true")
	}

	resp = NewResponse([]string{"a"}, 21, 20, 20)
	if resp.HasMore {
		t.Error("expected HasMore to be false on the last page")
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		offset, limit, want int
	}{
		{40, 20, 20},
		{10, 20, 0},
		{0, 20, 0},
	}
	for _, tt := range tests {
		p := Params{Limit: tt.limit, Offset: tt.offset}
		if got := p.PreviousOffset(); got != tt.want {
			t.Errorf("PreviousOffset(offset=%d, limit=%d) = %d, want %d", tt.offset, tt.limit, got, tt.want)
		}
	}
}

func TestParams_Links_FirstPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 0}
	links := p.Links("/api/v1/doctors", 25)

	if len(links) != 2 {
		t.Fatalf("expected self and next links, got %v", links)
	}
	if links[0].Relation != "self" || links[0].URL != "/api/v1/doctors?limit=10&offset=0" {
		t.Errorf("unexpected self link %+v", links[0])
	}
	if links[1].Relation != "next" || links[1].URL != "/api/v1/doctors?limit=10&offset=10" {
		t.Errorf("unexpected next link %+v", links[1])
	}
}

func TestParams_Links_LastPage(t *testing.T) {
	p := Params{Limit: 10, Offset: 20}
	links := p.Links("/api/v1/branches", 25)

	if len(links) != 2 {
		t.Fatalf("expected self and previous links, got %v", links)
	}
	if links[1].Relation != "previous" || links[1].URL != "/api/v1/branches?limit=10&offset=10" {
		t.Errorf("unexpected previous link %+v", links[1])
	}
}

func TestResponse_WithLinks(t *testing.T) {
	resp := NewResponse(nil, 0, 20, 0).WithLinks("/api/v1/branches")
	if len(resp.Links) != 1 || resp.Links[0].Relation != "self" {
		t.Errorf("expected only a self link for an empty result, got %v", resp.Links)
	}
}
