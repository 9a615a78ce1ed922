package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestChainMiddleware_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	h := ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}, mw("first"), mw("second"))
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{logger: zerolog.Nop()}
	h := ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, s.HTMLMiddleWare()...)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("hello"))
	rec.WriteHeader(http.StatusTeapot)

	require.Equal(t, http.StatusOK, rec.status, "first write fixes the status")
	require.Equal(t, 5, rec.bytes)
}

func TestPathOf(t *testing.T) {
	p, err := pathOf("http://localhost:3000/auth/okta/callback")
	require.NoError(t, err)
	require.Equal(t, "/auth/okta/callback", p)

	p, err = pathOf("")
	require.NoError(t, err)
	require.Equal(t, RouteCallback, p)

	_, err = pathOf("http://localhost:3000/")
	require.Error(t, err)
}
