package webserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lateralusd/machpatch/internal/testutil"
)

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(New(Config{Logger: testutil.NewTestLogger(t)}).Handler())
	defer srv.Close()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/"},
		{http.MethodGet, "/some/deep/path?q=1"},
		{http.MethodPost, "/form"},
		{http.MethodDelete, "/"},
		{http.MethodPut, "/x"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader("ignored"))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
			assert.Equal(t, Page, string(body))
		})
	}
}

func TestPageContent(t *testing.T) {
	assert.Contains(t, Page, "<title>Simple macOS Web Server</title>")
	assert.Contains(t, Page, "<h1>Hello from macOS!</h1>")
}

func TestNewDefaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, DefaultAddr, s.addr)
	assert.NotNil(t, s.logger)
}

func TestServeListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(Config{Logger: testutil.NewTestLogger(t)}).ServeListener(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, Page, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = New(Config{Addr: ln.Addr().String()}).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
