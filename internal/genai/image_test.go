package genai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reelforge/internal/domain"
)

func TestPositionalStyle(t *testing.T) {
	total := 5
	for i := 0; i < total; i++ {
		want := StyleInformational
		if i == 0 || i == total-1 {
			want = StyleHighImpact
		}
		if got := PositionalStyle(i, total); got != want {
			t.Fatalf("scene %d: style = %s, want %s", i, got, want)
		}
	}
	if got := PositionalStyle(0, 1); got != StyleHighImpact {
		t.Fatalf("single scene should be high-impact, got %s", got)
	}
}

func TestGenerateImageFetchesFirstURL(t *testing.T) {
	imageBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/assets/7.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(imageBytes)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		writeModelText(t, w, "Your illustration is ready at "+ts.URL+"/assets/7.jpg and also mirrored at "+ts.URL+"/assets/8.jpg")
	})

	client := newTestClient(t, ts)
	data, err := client.GenerateImage(context.Background(), ImageRequest{
		VisualDescription: "a volcano at dusk",
		Narration:         "It begins.",
		SceneIndex:        0,
		SceneCount:        5,
	})
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if !bytes.Equal(data, imageBytes) {
		t.Fatalf("image bytes mismatch: got %v", data)
	}
}

func TestGenerateImageNoResource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeModelText(t, w, "I could not generate an image this time.")
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	_, err := client.GenerateImage(context.Background(), ImageRequest{SceneIndex: 1, SceneCount: 4})
	if !errors.Is(err, domain.ErrNoResourceFound) {
		t.Fatalf("expected ErrNoResourceFound, got %v", err)
	}
}

func TestGenerateImageStylePrompt(t *testing.T) {
	var prompts []string

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/assets/a.png", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var req generateContentRequest
		decodeJSONBody(t, r, &req)
		prompts = append(prompts, req.Contents[0].Parts[0].Text)
		writeModelText(t, w, ts.URL+"/assets/a.png")
	})

	client := newTestClient(t, ts)
	for _, idx := range []int{0, 1, 2} {
		if _, err := client.GenerateImage(context.Background(), ImageRequest{SceneIndex: idx, SceneCount: 3}); err != nil {
			t.Fatalf("GenerateImage(%d) error: %v", idx, err)
		}
	}

	if !strings.Contains(prompts[0], "dramatic") || !strings.Contains(prompts[2], "dramatic") {
		t.Fatalf("first and last prompts should use the high-impact style: %q, %q", prompts[0], prompts[2])
	}
	if strings.Contains(prompts[1], "dramatic") {
		t.Fatalf("middle prompt should use the informational style: %q", prompts[1])
	}
}
