package outage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logx "barghbot/pkg/logx"
)

func TestClientSchedule(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/PlannedBlackoutsReport" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-jwt" {
			t.Errorf("Authorization = %q", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("payload decode: %v", err)
		}
		if payload["bill_id"] != "123456" || payload["from_date"] != "1404/05/01" || payload["to_date"] != "1499/12/29" {
			t.Errorf("payload = %v", payload)
		}
		// outage_number arrives numeric from this endpoint.
		_, _ = w.Write([]byte(`{"data":[
			{"outage_date":"1404/05/01","outage_start_time":"08:00","outage_stop_time":"10:00","outage_address":"x","outage_number":42},
			{"reg_date":"1404/05/02","outage_time":"09:00","outage_stop_time":"11:00","address":"y","outage_number":"abc"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, JWT: "test-jwt"}, logx.Nop())
	items, err := c.Schedule(context.Background(), "123456", "1404/05/01", FarFutureDate)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d records, want 2", len(items))
	}
	if items[0].Identity() != "42" {
		t.Fatalf("numeric outage_number not normalized: %q", items[0].Identity())
	}
	if items[1].CivilDate() != "1404/05/02" || items[1].StartHHMM() != "09:00" || items[1].AddressText() != "y" {
		t.Fatalf("alias fields not resolved: %+v", items[1])
	}
}

func TestClientLiveEmptyData(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/BlackoutsReport" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop())
	items, err := c.Live(context.Background(), "123456")
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("want empty authoritative list, got %v", items)
	}
}

func TestClientTypedFailures(t *testing.T) {
	t.Parallel()

	t.Run("status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(strings.Repeat("x", 500)))
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop())
		_, err := c.Live(context.Background(), "1")
		re, ok := IsRequestError(err)
		if !ok || re.Kind != FailStatus || re.Status != http.StatusBadGateway {
			t.Fatalf("err = %v", err)
		}
		if len(re.Snippet) > statusSnippetLen {
			t.Fatalf("snippet not bounded: %d bytes", len(re.Snippet))
		}
	})

	t.Run("decode", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data": not json`))
		}))
		defer srv.Close()

		c := NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop())
		_, err := c.Live(context.Background(), "1")
		if re, ok := IsRequestError(err); !ok || re.Kind != FailDecode {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("network", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // refuse connections

		c := NewClient(ClientConfig{BaseURL: srv.URL, JWT: "j"}, logx.Nop())
		_, err := c.Live(context.Background(), "1")
		re, ok := IsRequestError(err)
		if !ok || re.Kind != FailNetwork {
			t.Fatalf("err = %v", err)
		}
		var generic *RequestError
		if !errors.As(err, &generic) {
			t.Fatal("RequestError not unwrappable with errors.As")
		}
	})
}
