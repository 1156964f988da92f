package request

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyLimit(t *testing.T) {
	read := func(limit int64, body string) ([]byte, error) {
		var (
			data []byte
			err  error
		)
		h := BodyLimit(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err = io.ReadAll(r.Body)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
		return data, err
	}

	t.Run("under and at limit", func(t *testing.T) {
		data, err := read(100, strings.Repeat("x", 100))
		require.NoError(t, err)
		assert.Len(t, data, 100)
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := read(100, strings.Repeat("x", 101))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request body too large")
	})
}
