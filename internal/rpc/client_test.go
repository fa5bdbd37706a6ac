package rpc

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type fakeRegistry struct {
	endpoints []string
	err       error
	resolves  int
}

func (r *fakeRegistry) Resolve(ctx context.Context, service string) ([]string, error) {
	r.resolves++
	if r.err != nil {
		return nil, r.err
	}
	return r.endpoints, nil
}

type echoRequest struct {
	Name string `json:"name"`
}

type echoResponse struct {
	Greeting string `json:"greeting"`
}

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(zap.NewNop())
	ts := httptest.NewServer(s.echo)
	t.Cleanup(ts.Close)
	return s, ts
}

func endpointOf(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestClientCallRoundTrip(t *testing.T) {
	s, ts := startServer(t)
	s.Handle("greet", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req echoRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.Validationf("bad payload")
		}
		return echoResponse{Greeting: "hello " + req.Name}, nil
	})

	reg := &fakeRegistry{endpoints: []string{endpointOf(ts)}}
	client := NewClient(reg, time.Second, zap.NewNop())

	var resp echoResponse
	if err := client.Call(context.Background(), "greeter", "greet", echoRequest{Name: "ada"}, &resp); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Greeting != "hello ada" {
		t.Fatalf("Greeting = %q", resp.Greeting)
	}

	// The endpoint is cached: a second call never hits the registry again.
	if err := client.Call(context.Background(), "greeter", "greet", echoRequest{Name: "bob"}, &resp); err != nil {
		t.Fatalf("second Call: %v", err)
	}
	if reg.resolves != 1 {
		t.Fatalf("resolves = %d, want 1", reg.resolves)
	}
}

func TestClientCallRebuildsErrorKind(t *testing.T) {
	s, ts := startServer(t)
	s.Handle("reserve", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, domain.Conflictf("seat already reserved")
	})

	reg := &fakeRegistry{endpoints: []string{endpointOf(ts)}}
	client := NewClient(reg, time.Second, zap.NewNop())

	err := client.Call(context.Background(), "inventory", "reserve", struct{}{}, nil)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("Call = %v, want conflict", err)
	}
	if !strings.Contains(err.Error(), "seat already reserved") {
		t.Fatalf("message lost: %v", err)
	}
}

func TestClientCallUnknownCommand(t *testing.T) {
	_, ts := startServer(t)

	reg := &fakeRegistry{endpoints: []string{endpointOf(ts)}}
	client := NewClient(reg, time.Second, zap.NewNop())

	err := client.Call(context.Background(), "inventory", "no-such-command", struct{}{}, nil)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("Call = %v, want not_found", err)
	}
}

func TestClientCallInvalidatesDeadEndpoint(t *testing.T) {
	dead := httptest.NewServer(nil)
	deadEndpoint := endpointOf(dead)
	dead.Close()

	reg := &fakeRegistry{endpoints: []string{deadEndpoint}}
	client := NewClient(reg, time.Second, zap.NewNop())

	err := client.Call(context.Background(), "inventory", "reserve", struct{}{}, nil)
	if !domain.IsKind(err, domain.KindUnavailable) {
		t.Fatalf("Call against dead endpoint = %v, want unavailable", err)
	}

	// The dead endpoint was dropped; the next call resolves fresh and
	// reaches the replacement instance.
	s, ts := startServer(t)
	s.Handle("reserve", func(ctx context.Context, payload json.RawMessage) (any, error) {
		return nil, nil
	})
	reg.endpoints = []string{endpointOf(ts)}

	if err := client.Call(context.Background(), "inventory", "reserve", struct{}{}, nil); err != nil {
		t.Fatalf("Call after failover: %v", err)
	}
	if reg.resolves != 2 {
		t.Fatalf("resolves = %d, want 2", reg.resolves)
	}
}

func TestClientCallRegistryEmpty(t *testing.T) {
	reg := &fakeRegistry{err: domain.Unavailablef("no live instances of service %q", "inventory")}
	client := NewClient(reg, time.Second, zap.NewNop())

	err := client.Call(context.Background(), "inventory", "reserve", struct{}{}, nil)
	if !domain.IsKind(err, domain.KindUnavailable) {
		t.Fatalf("Call = %v, want unavailable", err)
	}
}
