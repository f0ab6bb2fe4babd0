package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithRateLimit(0))
}

func TestClient_FetchPage(t *testing.T) {
	var got url.Values
	var headers http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		headers = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"studies":[{"protocolSection":{}},{"protocolSection":{}}],"nextPageToken":"abc"}`))
	})

	page, err := client.FetchPage(context.Background(), PageRequest{Query: "Cancer OR Diabetes", PageSize: 50})
	require.NoError(t, err)

	assert.Len(t, page.Records, 2)
	assert.Equal(t, "abc", page.NextToken)
	assert.True(t, page.HasNext())

	assert.Equal(t, "Cancer OR Diabetes", got.Get("query.term"))
	assert.Equal(t, "50", got.Get("pageSize"))
	assert.Equal(t, Fields, got.Get("fields"))
	assert.False(t, got.Has("pageToken"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.Equal(t, DefaultUserAgent, headers.Get("User-Agent"))
}

func TestClient_FetchPageWithToken(t *testing.T) {
	var token string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		token = r.URL.Query().Get("pageToken")
		_, _ = w.Write([]byte(`{"studies":[]}`))
	})

	page, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 10, Token: "next-1"})
	require.NoError(t, err)

	assert.Equal(t, "next-1", token)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasNext())
}

func TestClient_FetchByIDs(t *testing.T) {
	var got url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		_, _ = w.Write([]byte(`{"studies":[{}]}`))
	})

	page, err := client.FetchByIDs(context.Background(), []string{"NCT1", "NCT2"})
	require.NoError(t, err)

	assert.Len(t, page.Records, 1)
	assert.Equal(t, "NCT1,NCT2", got.Get("filter.ids"))
	assert.Equal(t, Fields, got.Get("fields"))
	assert.Equal(t, "2", got.Get("pageSize"))
	assert.False(t, got.Has("query.term"))
}

func TestClient_FetchByIDsPageSize(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  string
	}{
		{"more than the registry default", 25, "25"},
		{"capped at the registry maximum", MaxIDsPageSize + 10, strconv.Itoa(MaxIDsPageSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got url.Values
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query()
				_, _ = w.Write([]byte(`{"studies":[]}`))
			})

			ids := make([]string, tt.count)
			for i := range ids {
				ids[i] = fmt.Sprintf("NCT%08d", i)
			}
			_, err := client.FetchByIDs(context.Background(), ids)
			require.NoError(t, err)

			assert.Equal(t, tt.want, got.Get("pageSize"))
			assert.Len(t, strings.Split(got.Get("filter.ids"), ","), tt.count)
		})
	}
}

func TestClient_FetchByIDsEmpty(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	page, err := client.FetchByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Zero(t, calls.Load())
}

func TestClient_MissingStudiesKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalCount":0}`))
	})

	page, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 1})
	require.NoError(t, err)
	assert.Empty(t, page.Records)
}

func TestClient_UnexpectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	assert.Contains(t, err.Error(), "429")
}

func TestClient_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode studies")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewClient(srv.URL, WithRateLimit(0), WithTimeout(50*time.Millisecond))

	_, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 1})
	require.Error(t, err)
}

func TestClient_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPage(ctx, PageRequest{Query: "x", PageSize: 1})
	require.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestClient_RateLimitSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"studies":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, WithRateLimit(20))

	start := time.Now()
	for range 3 {
		_, err := client.FetchPage(context.Background(), PageRequest{Query: "x", PageSize: 1})
		require.NoError(t, err)
	}

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("")

	assert.Equal(t, DefaultURL, client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultUserAgent, client.userAgent)
}
