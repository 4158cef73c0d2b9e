package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUploadRelay_Success(t *testing.T) {
	var gotContentType, gotUA string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
		// The host answers with the hosted URL and some whitespace.
		_, _ = w.Write([]byte("https://files.example/abc.png\n"))
	}))
	defer srv.Close()

	svc := NewUploadService(srv.URL)
	url, err := svc.Relay(context.Background(),
		"multipart/form-data; boundary=xyz",
		strings.NewReader("--xyz\r\npayload\r\n--xyz--"))
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if url != "https://files.example/abc.png" {
		t.Fatalf("url = %q (whitespace not trimmed?)", url)
	}
	if !strings.Contains(gotContentType, "boundary=xyz") {
		t.Fatalf("content type lost boundary: %q", gotContentType)
	}
	if gotUA == "" {
		t.Fatal("user agent not set")
	}
	if !strings.Contains(string(gotBody), "payload") {
		t.Fatalf("body not forwarded: %q", gotBody)
	}
}

func TestUploadRelay_HostError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	svc := NewUploadService(srv.URL)
	_, err := svc.Relay(context.Background(), "multipart/form-data", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error on 4xx host response")
	}
	if !strings.Contains(err.Error(), "413") {
		t.Fatalf("error does not carry the status: %v", err)
	}
}

func TestNewUploadService_DefaultEndpoint(t *testing.T) {
	svc := NewUploadService("")
	if svc.Endpoint != DefaultUploadEndpoint {
		t.Fatalf("Endpoint = %q", svc.Endpoint)
	}
}
