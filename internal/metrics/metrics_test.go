package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func startTestServer(t *testing.T, check HealthCheck) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(ln.Addr().String(), check, zerolog.Nop())
	s.SetListener(ln)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return "http://" + ln.Addr().String()
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestServerMetrics(t *testing.T) {
	BackupsCreated.WithLabelValues("test").Inc()
	base := startTestServer(t, nil)

	code, body := get(t, base+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("/metrics status = %d", code)
	}
	if !strings.Contains(body, `baralga_backups_created_total{trigger="test"}`) {
		t.Error("/metrics is missing the backup counter")
	}

	if code, _ := get(t, base+"/health"); code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", code)
	}
}

func TestServerHealthFailure(t *testing.T) {
	base := startTestServer(t, func(context.Context) error {
		return errors.New("storage unavailable")
	})

	code, body := get(t, base+"/health")
	if code != http.StatusServiceUnavailable {
		t.Errorf("/health status = %d, want 503", code)
	}
	if !strings.Contains(body, "storage unavailable") {
		t.Errorf("/health body = %q", body)
	}
}

func TestServerBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	s := NewServer(ln.Addr().String(), nil, zerolog.Nop())
	if err := s.Start(); err == nil {
		_ = s.Stop(context.Background())
		t.Fatal("Start() on a busy port succeeded")
	}
}
