package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/auth/me" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u1", Username: "neo"})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Token: func() string { return "tok123" }})
	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if user.Username != "neo" {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestClientOmitsAuthorizationWhenUnauthenticated(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(AuthResponse{Token: "fresh", User: User{ID: "u1"}})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	if _, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "pw"}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header, got %q", gotAuth)
	}
}

func TestClientDecodesErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Room not found"})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	_, err := c.Room(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	apiErr := err.(*Error)
	if apiErr.Message != "Room not found" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestClientFiresUnauthorizedHookOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Token expired"})
	}))
	defer srv.Close()

	fired := 0
	c := NewClient(Options{BaseURL: srv.URL, OnUnauthorized: func() { fired++ }})
	if _, err := c.Progress(context.Background()); !IsUnauthorized(err) {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if fired != 1 {
		t.Fatalf("expected hook to fire once, fired %d times", fired)
	}
}

func TestExecuteCommandRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/labs/sess-1/execute" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["command"] != "ls -la" {
			t.Errorf("unexpected command %q", body["command"])
		}
		_ = json.NewEncoder(w).Encode(ExecResult{Output: "a\nb", ExitCode: 0})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	res, err := c.ExecuteCommand(context.Background(), "sess-1", "ls -la")
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "a\nb" || res.ExitCode != 0 {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestClientTimesOutHungRequests(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Roadmaps(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout did not bound the request")
	}
}

func TestRoomsFilterEncodedAsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode([]Room{})
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})
	if _, err := c.Rooms(context.Background(), RoomFilter{RoadmapID: "rm1", Category: "web"}); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "category=web&roadmap_id=rm1" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestCombinedOutputPrefersMergedStream(t *testing.T) {
	r := CodeRunResult{Output: "merged", Stdout: "solo"}
	if r.CombinedOutput() != "merged" {
		t.Fatalf("expected merged stream")
	}
	r = CodeRunResult{Stdout: "solo"}
	if r.CombinedOutput() != "solo" {
		t.Fatalf("expected stdout fallback")
	}
}
