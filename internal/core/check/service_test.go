package check

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"alercheck-api/internal/core/ai/cache"
	"alercheck-api/internal/core/ai/ollama"
	"alercheck-api/internal/infrastructure/config"
	"alercheck-api/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama is a minimal stand-in for the local inference server.
type fakeOllama struct {
	server *httptest.Server

	generateCalls int64
	chatCalls     int64

	lastModel  string
	lastPrompt string
	lastImages []string

	reply  string
	status int
}

func newFakeOllama(t *testing.T, reply string) *fakeOllama {
	t.Helper()
	f := &fakeOllama{reply: reply, status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.generateCalls, 1)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		f.lastModel = req.Model
		f.lastPrompt = req.Prompt

		if f.status != http.StatusOK {
			http.Error(w, "model exploded", f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"response": f.reply})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&f.chatCalls, 1)
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string   `json:"role"`
				Content string   `json:"content"`
				Images  []string `json:"images"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		f.lastModel = req.Model
		f.lastPrompt = req.Messages[0].Content
		f.lastImages = req.Messages[0].Images

		if f.status != http.StatusOK {
			http.Error(w, "model exploded", f.status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"content": f.reply},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Ollama: config.OllamaConfig{
			BaseURL:     baseURL,
			Model:       "llama3.2",
			VisionModel: "llava",
			Timeout:     5 * time.Second,
		},
		Image: config.ImageConfig{
			MaxSizeBytes: 10 << 20,
		},
		Cache: config.CacheConfig{
			Enabled:         true,
			Backend:         "memory",
			MaxSize:         16,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCheckTextFlow(t *testing.T) {
	reply := `{"hasRisk":true,"matched":["Peanuts"],"explanation":"contém amendoim","warning":"cuidado com contaminação cruzada","safeAlternatives":[{"item":"sunflower seed butter","why":"protein source"}]}`
	fake := newFakeOllama(t, reply)

	svc := NewService(testConfig(fake.server.URL), nil)
	defer svc.Close()

	result, err := svc.Check(context.Background(), &common.AllergenCheckRequest{
		IngredientsText: "peanuts, salt",
		Allergens:       []string{"Peanuts"},
		Locale:          "en-US",
	})

	require.NoError(t, err)
	assert.True(t, result.HasRisk)
	assert.Equal(t, []string{"Peanuts"}, result.Matched)
	require.Len(t, result.SafeAlternatives, 1)
	assert.Equal(t, "sunflower seed butter", result.SafeAlternatives[0].Item)
	assert.Empty(t, result.RawText)

	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.generateCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&fake.chatCalls))
	assert.Equal(t, "llama3.2", fake.lastModel)
	assert.Contains(t, fake.lastPrompt, "Peanuts")
	assert.Contains(t, fake.lastPrompt, "peanuts, salt")
	assert.Contains(t, fake.lastPrompt, "Idioma: en-US")
}

func TestCheckImageFlow(t *testing.T) {
	reply := `{"hasRisk":false,"matched":[],"explanation":"sem risco aparente","warning":"atenção à contaminação cruzada","safeAlternatives":[]}`
	fake := newFakeOllama(t, reply)

	svc := NewService(testConfig(fake.server.URL), nil)
	defer svc.Close()

	payload := pngBase64(t)
	result, err := svc.Check(context.Background(), &common.AllergenCheckRequest{
		Allergens:   []string{"Leite"},
		ImageBase64: "data:image/png;base64," + payload,
	})

	require.NoError(t, err)
	assert.False(t, result.HasRisk)
	assert.Empty(t, result.RawText)

	assert.Equal(t, int64(0), atomic.LoadInt64(&fake.generateCalls))
	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.chatCalls))
	assert.Equal(t, "llava", fake.lastModel)
	// The data-URL prefix must be stripped before the payload reaches Ollama.
	require.Len(t, fake.lastImages, 1)
	assert.Equal(t, payload, fake.lastImages[0])
}

func TestCheckValidationBeforeBackendCall(t *testing.T) {
	fake := newFakeOllama(t, "{}")

	svc := NewService(testConfig(fake.server.URL), nil)
	defer svc.Close()

	tests := []struct {
		name string
		req  *common.AllergenCheckRequest
	}{
		{
			name: "missing content",
			req:  &common.AllergenCheckRequest{Allergens: []string{"Peanuts"}},
		},
		{
			name: "missing allergens",
			req:  &common.AllergenCheckRequest{IngredientsText: "milk"},
		},
		{
			name: "invalid image payload",
			req: &common.AllergenCheckRequest{
				Allergens:   []string{"Peanuts"},
				ImageBase64: "not base64 at all!!!",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Check(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, common.IsValidationError(err))
		})
	}

	// No request ever reached the backend.
	assert.Equal(t, int64(0), atomic.LoadInt64(&fake.generateCalls))
	assert.Equal(t, int64(0), atomic.LoadInt64(&fake.chatCalls))
}

func TestCheckTransportError(t *testing.T) {
	fake := newFakeOllama(t, "")
	fake.status = http.StatusInternalServerError

	svc := NewService(testConfig(fake.server.URL), nil)
	defer svc.Close()

	result, err := svc.Check(context.Background(), &common.AllergenCheckRequest{
		IngredientsText: "milk",
		Allergens:       []string{"Milk"},
	})

	require.Error(t, err)
	assert.Nil(t, result)

	var apiErr *ollama.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "model exploded")
}

func TestCheckFallbackOnGarbledReply(t *testing.T) {
	fake := newFakeOllama(t, "I cannot process this request.")

	svc := NewService(testConfig(fake.server.URL), nil)
	defer svc.Close()

	result, err := svc.Check(context.Background(), &common.AllergenCheckRequest{
		IngredientsText: "milk",
		Allergens:       []string{"Milk"},
	})

	require.NoError(t, err)
	assert.False(t, result.HasRisk)
	assert.Equal(t, "I cannot process this request.", result.RawText)
	assert.Equal(t, fallbackExplanation, result.Explanation)
}

func TestCheckCacheHitSkipsBackend(t *testing.T) {
	reply := `{"hasRisk":true,"matched":["Milk"],"explanation":"x","warning":"y","safeAlternatives":[]}`
	fake := newFakeOllama(t, reply)

	cfg := testConfig(fake.server.URL)
	store, err := cache.NewStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(cfg, store)
	defer svc.Close()

	req := &common.AllergenCheckRequest{
		IngredientsText: "milk",
		Allergens:       []string{"Milk"},
	}

	first, err := svc.Check(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Check(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&fake.generateCalls))
}

func TestCheckFallbackNotCached(t *testing.T) {
	fake := newFakeOllama(t, "no json here")

	cfg := testConfig(fake.server.URL)
	store, err := cache.NewStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(cfg, store)
	defer svc.Close()

	req := &common.AllergenCheckRequest{
		IngredientsText: "milk",
		Allergens:       []string{"Milk"},
	}

	_, err = svc.Check(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Check(context.Background(), req)
	require.NoError(t, err)

	// A garbled reply gets a fresh generation on resubmit.
	assert.Equal(t, int64(2), atomic.LoadInt64(&fake.generateCalls))
}
