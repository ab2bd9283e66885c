package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestActor(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		typ     string
		want    entity.Actor
		wantErr bool
	}{
		{name: "no header", want: entity.SystemActor},
		{name: "user default", id: "u-1", want: entity.Actor{ID: "u-1", Type: entity.ActorUser}},
		{name: "agent", id: "agent-7", typ: "agent", want: entity.Actor{ID: "agent-7", Type: entity.ActorAgent}},
		{name: "unknown type", id: "u-2", typ: "robot", want: entity.Actor{ID: "u-2", Type: entity.ActorUser}},
		{name: "too long", id: strings.Repeat("a", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got entity.Actor
			h := Actor(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = utils.GetActorFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != "" {
				req.Header.Set(HeaderActorID, tt.id)
				req.Header.Set(HeaderActorType, tt.typ)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if tt.wantErr {
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("actor = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Recover(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %s", rec.Body.String())
	}
	if logs.FilterMessage("PANIC recovered").Len() != 1 {
		t.Fatalf("panic not logged: %v", logs.All())
	}
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	for _, code := range []int{http.StatusOK, http.StatusConflict, http.StatusInternalServerError} {
		h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/trips", nil))
	}

	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 3 {
		t.Fatalf("logged %d requests, want 3", len(entries))
	}
	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Fatalf("entry %d level = %s, want %s", i, e.Level, want[i])
		}
		if e.ContextMap()["status"] == nil {
			t.Fatalf("entry %d missing status field", i)
		}
	}
}

func TestRateLimitPassThrough(t *testing.T) {
	called := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ })

	disabled := utils.RateLimitConfig{Enabled: false, Capacity: 1}
	enabledNoRedis := utils.RateLimitConfig{Enabled: true, Capacity: 1}

	for _, cfg := range []utils.RateLimitConfig{disabled, enabledNoRedis} {
		h := RateLimit(cfg, nil, zaptest.NewLogger(t))(next)
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/trips/T1/holds", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
		}
	}
	if called != 6 {
		t.Fatalf("next called %d times, want 6", called)
	}
}

func TestRateKey(t *testing.T) {
	var keys []string
	r := chi.NewRouter()
	r.Use(Actor(zaptest.NewLogger(t)))
	r.Post("/api/trips/{id}/holds", func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, rateKey("rl", r))
	})

	anon := httptest.NewRequest(http.MethodPost, "/api/trips/T1/holds", nil)
	anon.RemoteAddr = "10.0.0.7:51234"
	r.ServeHTTP(httptest.NewRecorder(), anon)

	agent := httptest.NewRequest(http.MethodPost, "/api/trips/T2/holds", nil)
	agent.Header.Set(HeaderActorID, "agent-7")
	agent.Header.Set(HeaderActorType, "AGENT")
	r.ServeHTTP(httptest.NewRecorder(), agent)

	want := []string{
		"rl:ip:10.0.0.7:POST /api/trips/{id}/holds",
		"rl:actor:agent-7:POST /api/trips/{id}/holds",
	}
	if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
		t.Fatalf("keys = %q, want %q", keys, want)
	}
}
