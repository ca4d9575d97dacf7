package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asterisksounds/asterisk-sound-bot/internal/conf"
	"github.com/asterisksounds/asterisk-sound-bot/internal/errors"
)

func hookServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func hookURL(srv *httptest.Server) string {
	return fmt.Sprintf("generic://%s/hook?disabletls=yes", strings.TrimPrefix(srv.URL, "http://"))
}

func TestTestEvent(t *testing.T) {
	t.Parallel()

	ok := TestEvent(false, "a.gsm")
	assert.False(t, ok.Failed())
	assert.NotEmpty(t, ok.StatusURL)
	assert.Equal(t, "a.gsm", ok.Path)

	failed := TestEvent(true, "a.gsm")
	assert.True(t, failed.Failed())
	assert.Equal(t, 32, failed.ExitCode)
	assert.Equal(t, "posting", failed.FailedStage)

	_, err := json.Marshal(failed)
	require.NoError(t, err)
}

func TestSendDeliversEvent(t *testing.T) {
	t.Parallel()

	srv, bodies := hookServer(t)
	settings := &conf.NotifySettings{URLs: []string{hookURL(srv)}, Timeout: 5 * time.Second}

	var out bytes.Buffer
	ev := TestEvent(true, "asterisk-core-sounds-en-gsm/vm-goodbye.gsm")
	require.NoError(t, Send(t.Context(), settings, ev, &out))

	assert.Contains(t, out.String(), "outcome=aborted")
	assert.Contains(t, out.String(), "targets=1")
	require.Len(t, bodies(), 1)
	assert.Contains(t, bodies()[0], "vm-goodbye.gsm")
}

func TestSendOnlyFailuresSkipsSuccess(t *testing.T) {
	t.Parallel()

	srv, bodies := hookServer(t)
	settings := &conf.NotifySettings{URLs: []string{hookURL(srv)}, OnlyFailures: true, Timeout: time.Second}

	var out bytes.Buffer
	require.NoError(t, Send(t.Context(), settings, TestEvent(false, "a.gsm"), &out))
	assert.Contains(t, out.String(), "--failed")
	assert.Empty(t, bodies())
}

func TestSendWithoutTargets(t *testing.T) {
	t.Parallel()

	err := Send(t.Context(), &conf.NotifySettings{}, TestEvent(false, "a.gsm"), io.Discard)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
