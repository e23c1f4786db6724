package executor

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/mohitkumar/flowcall/model"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded any
		_ = json.Unmarshal(body, &decoded)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":      r.Method,
			"query":       r.URL.Query().Get("page"),
			"auth":        r.Header.Get("Authorization"),
			"agent":       r.Header.Get("X-Agent"),
			"contentType": r.Header.Get("Content-Type"),
			"body":        decoded,
		})
	})
	mux.HandleFunc("/api/text", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	})
	mux.HandleFunc("/api/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	mux.HandleFunc("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/api/encoded", func(w http.ResponseWriter, r *http.Request) {
		payload := []byte(`{"encoded":true}`)
		encoding := r.URL.Query().Get("enc")
		w.Header().Set("Content-Encoding", encoding)
		_, _ = w.Write(compress(t, payload, encoding))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func compress(t *testing.T, data []byte, encoding string) []byte {
	var buf bytes.Buffer
	switch encoding {
	case "gzip":
		z := gzip.NewWriter(&buf)
		_, _ = z.Write(data)
		require.NoError(t, z.Close())
	case "br":
		w := brotli.NewWriter(&buf)
		_, _ = w.Write(data)
		require.NoError(t, w.Close())
	case "zstd":
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		buf.Write(enc.EncodeAll(data, nil))
		require.NoError(t, enc.Close())
	}
	return buf.Bytes()
}

func TestExecute(t *testing.T) {
	server := newTestServer(t)
	ex, err := NewHTTPExecutor(Config{
		BaseURL:        server.URL + "/api",
		DefaultHeaders: map[string]string{"X-Agent": "flowcall"},
	})
	require.NoError(t, err)
	ctx := context.Background()

	for scenario, fn := range map[string]func(t *testing.T){
		"json echo with relative url": func(t *testing.T) {
			resp, err := ex.Execute(ctx, &model.Request{
				Method:  "post",
				Url:     "/echo",
				Headers: map[string]string{"Authorization": "Bearer t"},
				Params:  map[string]string{"page": "2"},
				Body:    map[string]any{"name": "ann"},
			})
			require.NoError(t, err)
			require.Equal(t, 200, resp.Status)
			require.True(t, resp.Success())
			body := resp.Body.(map[string]any)
			require.Equal(t, "POST", body["method"])
			require.Equal(t, "2", body["query"])
			require.Equal(t, "Bearer t", body["auth"])
			require.Equal(t, "flowcall", body["agent"])
			require.Equal(t, "application/json", body["contentType"])
			require.Equal(t, map[string]any{"name": "ann"}, body["body"])
			require.Equal(t, "application/json", resp.Headers["content-type"])
			require.Greater(t, resp.Size, 0)
		},
		"absolute url and text body": func(t *testing.T) {
			resp, err := ex.Execute(ctx, &model.Request{Method: "GET", Url: server.URL + "/api/text"})
			require.NoError(t, err)
			require.Equal(t, "plain text", resp.Body)
		},
		"non 2xx is a result": func(t *testing.T) {
			resp, err := ex.Execute(ctx, &model.Request{Url: "missing"})
			require.NoError(t, err)
			require.Equal(t, 404, resp.Status)
			require.False(t, resp.Success())
			require.Equal(t, map[string]any{"error": "not found"}, resp.Body)
		},
		"cancelled context is an error": func(t *testing.T) {
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			_, err := ex.Execute(cctx, &model.Request{Url: "slow"})
			require.Error(t, err)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestExecuteEncodedBodies(t *testing.T) {
	server := newTestServer(t)
	ex, err := NewHTTPExecutor(Config{BaseURL: server.URL})
	require.NoError(t, err)
	for _, enc := range []string{"gzip", "br", "zstd"} {
		t.Run(enc, func(t *testing.T) {
			resp, err := ex.Execute(context.Background(), &model.Request{Url: "/api/encoded?enc=" + enc})
			require.NoError(t, err)
			require.Equal(t, map[string]any{"encoded": true}, resp.Body)
		})
	}
}

func TestResolveURL(t *testing.T) {
	ex, err := NewHTTPExecutor(Config{BaseURL: "https://example.com/v1"})
	require.NoError(t, err)

	u, err := ex.ResolveURL("/users/1", nil)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/v1/users/1", u)

	u, err = ex.ResolveURL("users?x=1", map[string]string{"y": "2"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com/v1/users?x=1&y=2", u)

	noBase, err := NewHTTPExecutor(Config{})
	require.NoError(t, err)
	_, err = noBase.ResolveURL("/users", nil)
	require.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	require.Equal(t, "", DecodeBody(nil))
	require.Equal(t, []any{float64(1), "a"}, DecodeBody([]byte(`[1,"a"]`)))
	require.Equal(t, "<html/>", DecodeBody([]byte("<html/>")))
}

func TestDecompressUnknown(t *testing.T) {
	_, err := Decompress([]byte("x"), "lzma")
	require.Error(t, err)
	out, err := Decompress([]byte("x"), "identity")
	require.NoError(t, err)
	require.Equal(t, []byte("x"), out)
}
