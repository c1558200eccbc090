package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"testing"
	"time"
)

func TestServer_ServeAndShutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	srv := New(handler, Options{ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second}, logger)

	var order []string
	srv.OnShutdown("database", func(context.Context) error {
		order = append(order, "database")
		return nil
	})
	srv.OnShutdown("sessions", func(context.Context) error {
		order = append(order, "sessions")
		return errors.New("already closed")
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected the failing component's error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	if want := []string{"sessions", "database"}; !slices.Equal(order, want) {
		t.Errorf("shutdown order = %v, want %v", order, want)
	}
}

func TestNew_Addr(t *testing.T) {
	srv := New(http.NotFoundHandler(), Options{Port: 9090}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if srv.Addr() != ":9090" {
		t.Errorf("Addr() = %q, want :9090", srv.Addr())
	}
}
