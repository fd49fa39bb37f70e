package links

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocopet/backend/internal/domain"
)

func TestResolve_FollowsRedirects(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	target := final.URL + "/maps/?q=21.1619,-86.8515"
	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	}))
	defer short.Close()

	resolver := NewHTTPResolver(5*time.Second, nil)
	resolved, err := resolver.Resolve(context.Background(), short.URL)

	require.NoError(t, err)
	assert.Equal(t, target, resolved)
}

func TestResolve_MultipleHops(t *testing.T) {
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/destino", http.StatusFound)
	}))
	defer hop.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, hop.URL, http.StatusFound)
	}))
	defer short.Close()

	resolver := NewHTTPResolver(5*time.Second, nil)
	resolved, err := resolver.Resolve(context.Background(), short.URL)

	require.NoError(t, err)
	assert.Equal(t, final.URL+"/destino", resolved)
}

func TestResolve_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := NewHTTPResolver(5*time.Second, nil)
	_, err := resolver.Resolve(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLinkResolutionFailed))
}

func TestResolve_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	resolver := NewHTTPResolver(time.Second, nil)
	_, err := resolver.Resolve(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLinkResolutionFailed))
}

func TestResolve_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	resolver := NewHTTPResolver(5*time.Second, nil)
	_, err := resolver.Resolve(ctx, server.URL)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLinkResolutionFailed))
}

func TestResolve_UsesHead(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
	}))
	defer server.Close()

	resolver := NewHTTPResolver(5*time.Second, nil)
	_, err := resolver.Resolve(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method)
}
