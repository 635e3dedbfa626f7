package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/deppfellow/careportal/internal/config"
	"github.com/deppfellow/careportal/internal/handler"
	"github.com/deppfellow/careportal/internal/server"
)

func newTestServer(buf *bytes.Buffer, rateLimit float64) *server.Server {
	log := zerolog.New(buf)
	return &server.Server{
		Config: &config.Config{
			Primary: config.Primary{Env: "local"},
			Server: config.ServerConfig{
				CORSAllowedOrigins: []string{"*"},
				RateLimit:          rateLimit,
			},
		},
		Logger: &log,
	}
}

func newTestHandlers(s *server.Server) *handler.Handlers {
	return &handler.Handlers{
		Health:      handler.NewHealthHandler(s),
		OpenAPI:     handler.NewOpenAPIHandler(s),
		Appointment: handler.NewAppointmentHandler(s, nil),
		Certificate: handler.NewCertificateHandler(s, nil),
	}
}

func TestNewRouter_RateLimitRejectionsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf, 0.001)
	r := NewRouter(s, newTestHandlers(s))

	var codes []int
	for range 3 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/my", nil))
		codes = append(codes, rec.Code)
	}

	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, []int{http.StatusTooManyRequests, http.StatusTooManyRequests}, codes[1:])

	logs := buf.String()
	assert.Equal(t, 2, strings.Count(logs, `"message":"rate limit exceeded"`), logs)
	rejectedRequests := 0
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, `"message":"API"`) && strings.Contains(line, `"status":429`) {
			rejectedRequests++
		}
	}
	assert.Equal(t, 2, rejectedRequests, logs)
	assert.Contains(t, logs, `"request_id":`)
}

func TestNewRouter_RequestLogHasNoDuplicateKeys(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(&buf, 100)
	r := NewRouter(s, newTestHandlers(s))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, `"message":"API"`) {
			continue
		}
		for _, key := range []string{`"request_id":`, `"method":`, `"ip":`} {
			assert.Equal(t, 1, strings.Count(line, key), "%s in %s", key, line)
		}
		return
	}
	t.Fatalf("no request log line in %q", buf.String())
}
