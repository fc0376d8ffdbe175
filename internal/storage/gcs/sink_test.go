package gcs_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	gcsclient "cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/gcs"
)

func newTestClient(t *testing.T, handler http.Handler) *gcsclient.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gcsclient.NewClient(context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := gcs.New(nil, gcs.Config{Bucket: "b", Object: "o"})
	assert.Error(t, err)

	client := newTestClient(t, http.NotFoundHandler())
	_, err = gcs.New(client, gcs.Config{Object: "o"})
	assert.Error(t, err)
	_, err = gcs.New(client, gcs.Config{Bucket: "b"})
	assert.Error(t, err)

	sink, err := gcs.New(client, gcs.Config{Bucket: "b", Object: "menus/stores.json"})
	require.NoError(t, err)
	assert.Equal(t, "gs://b/menus/stores.json", sink.URI())
}

func TestSinkSaveUploadsJSON(t *testing.T) {
	t.Parallel()

	var uploads atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stores.json", r.URL.Query().Get("name"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `"name": "카페 A"`)
		uploads.Add(1)
		fmt.Fprintln(w, `{"bucket": "test-bucket", "name": "stores.json"}`)
	})

	sink, err := gcs.New(newTestClient(t, handler), gcs.Config{Bucket: "test-bucket", Object: "stores.json"})
	require.NoError(t, err)

	err = sink.Save(context.Background(), []crawler.StoreRecord{{ID: "store_1", Name: "카페 A"}})
	require.NoError(t, err)
	assert.Equal(t, int32(1), uploads.Load())
}

func TestSinkSaveError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	sink, err := gcs.New(newTestClient(t, handler), gcs.Config{Bucket: "test-bucket", Object: "stores.json"})
	require.NoError(t, err)
	assert.Error(t, sink.Save(context.Background(), nil))
}
