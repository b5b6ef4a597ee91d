package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestChain(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mw("first"), mw("second"), mw("third"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "third", "handler"}
	if len(order) != len(want) {
		t.Fatalf("execution order length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when header is absent", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if captured == "" {
			t.Error("expected request id in context")
		}
		if rr.Header().Get(RequestIDHeader) != captured {
			t.Error("response header should carry the same request id")
		}
	})

	t.Run("preserves an existing header", func(t *testing.T) {
		var captured string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			captured = GetRequestID(r.Context())
		}))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "client-supplied-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if captured != "client-supplied-id" {
			t.Errorf("request id = %q, want client-supplied-id", captured)
		}
	})
}

func TestGetRequestID_MissingFromContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}

func TestIsHTMX(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if IsHTMX(req) {
		t.Error("IsHTMX() = true for request without header")
	}

	req.Header.Set(HTMXHeader, "true")
	if !IsHTMX(req) {
		t.Error("IsHTMX() = false for request with header")
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestLoggerMiddleware_PassesThrough(t *testing.T) {
	handler := Logger(noopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusTeapot)
	}
}

func TestCORS(t *testing.T) {
	t.Run("allows all origins by default", func(t *testing.T) {
		handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})

	t.Run("handles preflight requests", func(t *testing.T) {
		called := false
		handler := CORS(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))

		if rr.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
		}
		if called {
			t.Error("preflight request should not reach the handler")
		}
	})

	t.Run("echoes only allowed origins", func(t *testing.T) {
		handler := CORS([]string{"https://tinylink.dev"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want empty for disallowed origin", got)
		}
	})
}
