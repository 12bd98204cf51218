package ipfs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPin(t *testing.T) {
	requests := make(chan *http.Request, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"Pins":["%s"]}`, r.URL.Query().Get("arg"))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", server.Client())

	if err := client.Pin(context.Background(), "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", true); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	r := <-requests
	gotMethod := r.Method
	gotPath := r.URL.Path
	gotArg := r.URL.Query().Get("arg")
	gotRecursive := r.URL.Query().Get("recursive")

	if gotMethod != http.MethodPost {
		t.Errorf("Expected POST, got %s", gotMethod)
	}
	if gotPath != "/api/v0/pin/add" {
		t.Errorf("Expected path '/api/v0/pin/add', got '%s'", gotPath)
	}
	if gotArg != "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG" {
		t.Errorf("Unexpected arg '%s'", gotArg)
	}
	if gotRecursive != "true" {
		t.Errorf("Expected recursive 'true', got '%s'", gotRecursive)
	}
}

func TestPinAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"Message":"invalid path \"Qm1\": selected encoding not supported","Code":0,"Type":"error"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	err := client.Pin(context.Background(), "Qm1", true)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", apiErr.Status)
	}
	if apiErr.Type != "error" {
		t.Errorf("Expected type 'error', got '%s'", apiErr.Type)
	}
	if IsTransient(err) {
		t.Error("Expected API error not to be transient")
	}
}

func TestPinPlainServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	err := client.Pin(context.Background(), "Qm1", true)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T: %v", err, err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("Expected body as message, got '%s'", apiErr.Message)
	}
	if !IsTransient(err) {
		t.Error("Expected plain 5xx to be transient")
	}
}

func TestPinTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, http.DefaultClient)
	err := client.Pin(context.Background(), "Qm1", true)
	if err == nil {
		t.Fatal("Expected transport error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected transport error to be transient, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("pin: %w", context.DeadlineExceeded), true},
		{"api error", &APIError{Status: 500, Message: "bad cid", Type: "error"}, false},
		{"plain client error", &APIError{Status: 404, Message: "not found", Type: "http"}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
