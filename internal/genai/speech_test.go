package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelforge/internal/domain"
)

func TestSanitizeNarration(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello, world!", "Hello, world!"},
		{"Cost: $5 *per* item #deal", "Cost: 5 per item deal"},
		{"Ceci — une épée… vite", "Ceci une épée vite"},
		{"日本語のナレーション 123", "日本語のナレーション 123"},
		{"line\nbreaks\tand   spaces", "line breaks and spaces"},
		{`"quoted" (aside) - dash`, `"quoted" (aside) - dash`},
	}
	for _, tc := range cases {
		if got := SanitizeNarration(tc.in); got != tc.want {
			t.Fatalf("SanitizeNarration(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGenerateSpeechSanitizesBeforeSubmission(t *testing.T) {
	audioBytes := []byte("RIFFxxxxWAVE")
	var submitted string

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/assets/1.wav", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(audioBytes)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req generateContentRequest
		decodeJSONBody(t, r, &req)
		submitted = req.Contents[0].Parts[0].Text
		writeModelText(t, w, "Audio ready: "+ts.URL+"/assets/1.wav")
	})

	client := newTestClient(t, ts)
	data, err := client.GenerateSpeech(context.Background(), "Welcome! *Today* we cover #topics & more…")
	if err != nil {
		t.Fatalf("GenerateSpeech error: %v", err)
	}
	if !bytes.Equal(data, audioBytes) {
		t.Fatalf("audio bytes mismatch: got %q", data)
	}
	if strings.ContainsAny(submitted, "*#&…") {
		t.Fatalf("prompt still contains stripped symbols: %q", submitted)
	}
	if !strings.Contains(submitted, "Welcome! Today we cover topics more") {
		t.Fatalf("sanitized narration missing from prompt: %q", submitted)
	}
}

func TestGenerateSpeechNoResource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeModelText(t, w, "sorry, synthesis failed")
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	if _, err := client.GenerateSpeech(context.Background(), "text"); !errors.Is(err, domain.ErrNoResourceFound) {
		t.Fatalf("expected ErrNoResourceFound, got %v", err)
	}
}

func decodeJSONBody(t *testing.T, r *http.Request, out any) {
	t.Helper()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
}
