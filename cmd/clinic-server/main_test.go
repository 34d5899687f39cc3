package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medicare/voiceclinic/internal/config"
	"github.com/medicare/voiceclinic/internal/platform/knowledge"
	"github.com/medicare/voiceclinic/internal/platform/lock"
	"github.com/medicare/voiceclinic/internal/platform/notification"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		CORSOrigins:    []string{"*"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		BodyLimit:      "64K",
		LockBackend:    "local",
		NotifyMode:     "log",
		KBSource:       "dir",
		KBDir:          "testdata/none",
		ClinicName:     "Test Clinic",
	}
}

func TestNewLogger_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)
	logger.Info().Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON log line, got %q", buf.String())
	}
}

func TestBuildSender_DefaultsToLog(t *testing.T) {
	sender, closeFn, err := buildSender(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, ok := sender.(*notification.LogSender); !ok {
		t.Errorf("expected *LogSender, got %T", sender)
	}
}

func TestBuildSender_SMTP(t *testing.T) {
	cfg := testConfig()
	cfg.NotifyMode = "smtp"
	sender, closeFn, err := buildSender(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, ok := sender.(*notification.SMTPSender); !ok {
		t.Errorf("expected *SMTPSender, got %T", sender)
	}
}

func TestBuildLocker_Local(t *testing.T) {
	locker, closeFn, err := buildLocker(context.Background(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()
	if _, ok := locker.(*lock.LocalLocker); !ok {
		t.Errorf("expected *LocalLocker, got %T", locker)
	}
}

func TestBuildLoader_Dir(t *testing.T) {
	loader, err := buildLoader(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dl, ok := loader.(knowledge.DirLoader)
	if !ok {
		t.Fatalf("expected DirLoader, got %T", loader)
	}
	if dl.Dir != "testdata/none" {
		t.Errorf("Dir = %q", dl.Dir)
	}
}

func TestNewRouter_HealthAndRequestID(t *testing.T) {
	e, closeFn := newRouter(testConfig(), zerolog.Nop())
	defer closeFn()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestNewRouter_MountsModulesUnderAPI(t *testing.T) {
	e, closeFn := newRouter(testConfig(), zerolog.Nop(), func(tools, admin *echo.Group) {
		tools.POST("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "tool") })
		admin.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "admin") })
	})
	defer closeFn()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ping", nil))
	if rec.Body.String() != "tool" {
		t.Errorf("tool route body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil))
	if rec.Body.String() != "admin" {
		t.Errorf("admin route body = %q", rec.Body.String())
	}
}

func TestKBCheck(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "visiting.json"), []byte(`{"title":"Visiting","url":"u","content":"Visiting hours"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATABASE_URL", "postgres://unused")
	t.Setenv("KB_SOURCE", "dir")
	t.Setenv("KB_DIR", dir)

	cmd := kbCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("kb check: %v", err)
	}
	if !strings.Contains(out.String(), "Loaded 1 document(s)") {
		t.Errorf("output = %q", out.String())
	}
}
