package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ccastromar/sos-store-ops-system/internal/config"
	"github.com/stretchr/testify/require"
)

func TestExecute_RendersPathAndBody(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"deactivated": true})
	}))
	defer ts.Close()

	op := config.Operation{
		Name:     "wp_deactivate_plugin",
		Platform: "wordpress",
		Method:   "POST",
		Path:     "/wp-json/sos/v1/plugins/{{ .slug }}/deactivate",
		Body:     map[string]string{"slug": "{{ .slug }}"},
	}
	conn := config.Connection{Name: "wp", Platform: "wordpress", BaseURL: ts.URL, Token: "tok"}

	out, err := NewClient(2*time.Second).Execute(context.Background(), op, conn, map[string]string{"slug": "akismet"})
	require.NoError(t, err)
	require.Equal(t, "/wp-json/sos/v1/plugins/akismet/deactivate", gotPath)
	require.Equal(t, "akismet", gotBody["slug"])
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, true, out["deactivated"])
}

func TestExecute_ShopifyAuthHeader(t *testing.T) {
	var gotToken string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer ts.Close()

	op := config.Operation{Name: "shopify_update_product", Platform: "shopify", Method: "PUT", Path: "/admin/api/products/{{ .productId }}"}
	conn := config.Connection{Name: "shop", Platform: "shopify", BaseURL: ts.URL, Token: "shptok"}

	_, err := NewClient(2*time.Second).Execute(context.Background(), op, conn, map[string]string{"productId": "9"})
	require.NoError(t, err)
	require.Equal(t, "shptok", gotToken)
}

func TestExecute_PlatformMismatch(t *testing.T) {
	op := config.Operation{Name: "wp_clear_cache", Platform: "wordpress", Method: "POST", Path: "/x"}
	conn := config.Connection{Name: "shop", Platform: "shopify", BaseURL: "http://localhost:0"}

	_, err := NewClient(time.Second).Execute(context.Background(), op, conn, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "targets wordpress")
}

func TestExecute_Non2xxIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"plugin not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	op := config.Operation{Name: "wp_activate_plugin", Method: "POST", Path: "/x"}
	conn := config.Connection{Name: "wp", Platform: "wordpress", BaseURL: ts.URL}

	_, err := NewClient(time.Second).Execute(context.Background(), op, conn, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 404")
}

func TestExecute_TimeoutFromOperation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer ts.Close()

	op := config.Operation{Name: "slow", Method: "GET", Path: "/x", TimeoutMs: 50}
	conn := config.Connection{Name: "wp", Platform: "wordpress", BaseURL: ts.URL}

	_, err := NewClient(5*time.Second).Execute(context.Background(), op, conn, nil)
	require.Error(t, err)
}

func TestRenderString_MissingParamDefaults(t *testing.T) {
	out, err := RenderString("/plugins/{{ .slug }}", map[string]string{})
	require.NoError(t, err)
	require.Contains(t, out, "/plugins/")
}

func TestRenderMap(t *testing.T) {
	out, err := RenderMap(map[string]string{"a": "{{ .x }}", "b": "fixed"}, map[string]string{"x": "1"})
	require.NoError(t, err)
	require.Equal(t, "1", out["a"])
	require.Equal(t, "fixed", out["b"])
}
