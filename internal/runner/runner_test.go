package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hackterm/internal/api"
)

func TestRunReturnsExecutorResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["language"] != "python" || body["code"] != "print(1)" {
			t.Errorf("unexpected payload %v", body)
		}
		_ = json.NewEncoder(w).Encode(api.CodeRunResult{Output: "1\n", ExitCode: 0})
	}))
	defer srv.Close()

	r := New(api.NewClient(api.Options{BaseURL: srv.URL}), nil)
	res, err := r.Run(context.Background(), "python", "print(1)")
	if err != nil {
		t.Fatal(err)
	}
	if res.CombinedOutput() != "1\n" || res.ExitCode != 0 {
		t.Fatalf("unexpected result %#v", res)
	}
	if r.Busy() {
		t.Fatal("runner stuck busy after result")
	}
}

func TestRunRejectsConcurrentSubmissions(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(api.CodeRunResult{ExitCode: 0})
	}))
	defer srv.Close()

	r := New(api.NewClient(api.Options{BaseURL: srv.URL}), nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = r.Run(context.Background(), "python", "slow")
	}()

	// Wait for the first run to take the busy slot.
	for !r.Busy() {
	}
	if _, err := r.Run(context.Background(), "python", "fast"); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	close(release)
	wg.Wait()
	if r.Busy() {
		t.Fatal("busy flag not released")
	}
}

func TestRunReleasesBusyOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "executor offline"})
	}))
	defer srv.Close()

	r := New(api.NewClient(api.Options{BaseURL: srv.URL}), nil)
	if _, err := r.Run(context.Background(), "go", "package main"); err == nil {
		t.Fatal("expected error")
	}
	if r.Busy() {
		t.Fatal("busy flag not released after failure")
	}
}
