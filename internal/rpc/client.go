// Package rpc carries commands between services as JSON over HTTP. The
// wire shape is POST /rpc/<command> with a response envelope that either
// holds a result or a kind-tagged error, so domain errors survive the hop.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

// Registry resolves a logical service name to live host:port endpoints.
type Registry interface {
	Resolve(ctx context.Context, service string) ([]string, error)
}

type responseEnvelope struct {
	OK     bool            `json:"ok"`
	Error  *errorBody      `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Client is a registry-routed command client. It caches one endpoint per
// service and drops it on any transport failure, so the next call resolves
// fresh; a cached endpoint may serve many calls between failures.
type Client struct {
	registry Registry
	http     *http.Client
	timeout  time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	endpoints map[string]string
}

func NewClient(registry Registry, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		registry:  registry,
		http:      &http.Client{Timeout: timeout},
		timeout:   timeout,
		log:       log,
		endpoints: make(map[string]string),
	}
}

// Call invokes command on service, marshalling payload and decoding the
// result into result when it is non-nil. Transport-level failures,
// timeouts included, come back as Unavailable; an error envelope is
// rebuilt into a domain error of the same kind.
func (c *Client) Call(ctx context.Context, service, command string, payload any, result any) error {
	endpoint, err := c.endpoint(ctx, service)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Fatalf("marshal %s payload: %v", command, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := "http://" + endpoint + "/rpc/" + command
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Fatalf("build %s request: %v", command, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.invalidate(service, endpoint)
		return domain.WrapUnavailable("call "+service+"/"+command, err)
	}
	defer resp.Body.Close()

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.invalidate(service, endpoint)
		return domain.WrapUnavailable("decode "+service+"/"+command+" response", err)
	}

	if !envelope.OK {
		kind := domain.KindFatal
		msg := "remote call failed"
		if envelope.Error != nil {
			kind = domain.ErrorKind(envelope.Error.Kind)
			msg = envelope.Error.Message
		}
		return domain.NewError(kind, msg)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return domain.Fatalf("decode %s result: %v", command, err)
		}
	}
	return nil
}

func (c *Client) endpoint(ctx context.Context, service string) (string, error) {
	c.mu.Lock()
	if ep, ok := c.endpoints[service]; ok {
		c.mu.Unlock()
		return ep, nil
	}
	c.mu.Unlock()

	candidates, err := c.registry.Resolve(ctx, service)
	if err != nil {
		return "", err
	}
	ep := candidates[rand.Intn(len(candidates))]

	c.mu.Lock()
	c.endpoints[service] = ep
	c.mu.Unlock()

	c.log.Info("service endpoint resolved",
		zap.String("service", service), zap.String("endpoint", ep))
	return ep, nil
}

func (c *Client) invalidate(service, endpoint string) {
	c.mu.Lock()
	if c.endpoints[service] == endpoint {
		delete(c.endpoints, service)
	}
	c.mu.Unlock()
}
