// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arcollect/arcollect/lib/testutil"
)

func TestHandlerExposesRegistry(t *testing.T) {
	registry := NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arcollect_test_events_total",
		Help: "Test counter.",
	})
	registry.MustRegister(counter)
	counter.Add(3)

	server := httptest.NewServer(Handler(registry))
	defer server.Close()

	body := get(t, server.URL+"/metrics")
	if !strings.Contains(body, "arcollect_test_events_total 3") {
		t.Errorf("metrics output missing counter:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Error("metrics output missing runtime collector")
	}
	if body := get(t, server.URL+"/health"); body != "ok" {
		t.Errorf("health = %q, want ok", body)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, listener, prometheus.NewRegistry(), nil) }()

	if body := get(t, "http://"+listener.Addr().String()+"/health"); body != "ok" {
		t.Fatalf("health = %q, want ok", body)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve did not return after cancel"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}

func get(t *testing.T, url string) string {
	t.Helper()
	response, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}
	return string(body)
}
