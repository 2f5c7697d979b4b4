package health

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EgorLis/cmdbot/internal/bot"
	"github.com/EgorLis/cmdbot/internal/extension"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	state  bot.State
	report extension.Report
}

func (s stubSource) State() bot.State         { return s.state }
func (s stubSource) Report() extension.Report { return s.report }
func (s stubSource) Commands() []string       { return []string{"help", "ping"} }

func newTestServer(src Source) *Server {
	return New("127.0.0.1:0", src, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_Health_ShouldReportRunning(t *testing.T) {
	req := require.New(t)

	// Given
	s := newTestServer(stubSource{
		state:  bot.StateRunning,
		report: extension.Report{Entries: []extension.Entry{{Name: "ping", Loaded: true}}},
	})
	rec := httptest.NewRecorder()

	// When
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Then
	req.Equal(http.StatusOK, rec.Code)
	var body healthResponse
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal("ok", body.Status)
	req.Equal("RUNNING", body.State)
	req.Equal(1, body.Loaded)
	req.Equal(2, body.Commands)
}

func Test_Health_ShouldBeUnavailableUntilRunning(t *testing.T) {
	for _, st := range []bot.State{bot.StateNotConnected, bot.StateHandshaking, bot.StateReady, bot.StateDisconnected, bot.StateTerminated} {
		t.Run(st.String(), func(t *testing.T) {
			rec := httptest.NewRecorder()

			newTestServer(stubSource{state: st}).Handler().
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, http.StatusServiceUnavailable, rec.Code)
			require.Contains(t, rec.Body.String(), st.String())
		})
	}
}

func Test_Extensions_ShouldListEntries(t *testing.T) {
	req := require.New(t)

	// Given
	s := newTestServer(stubSource{
		state: bot.StateRunning,
		report: extension.Report{Entries: []extension.Entry{
			{Name: "alpha", Loaded: true, Commands: []string{"a"}},
			{Name: "bad", Err: errors.New("boom")},
		}},
	})
	rec := httptest.NewRecorder()

	// When
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/extensions", nil))

	// Then
	req.Equal(http.StatusOK, rec.Code)
	var body struct {
		Loaded     int             `json:"loaded"`
		Failed     int             `json:"failed"`
		Extensions []extensionView `json:"extensions"`
	}
	req.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	req.Equal(1, body.Loaded)
	req.Equal(1, body.Failed)
	req.Equal("boom", body.Extensions[1].Error)
	req.Equal([]string{"a"}, body.Extensions[0].Commands)
}

func Test_Health_ShouldAllowCrossOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.Header.Set("Origin", "http://dashboard.local")

	newTestServer(stubSource{state: bot.StateRunning}).Handler().ServeHTTP(rec, r)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func Test_Server_ShouldServeOverTCP(t *testing.T) {
	req := require.New(t)

	// Given
	s := newTestServer(stubSource{state: bot.StateRunning})
	req.NoError(s.Start())
	defer s.Shutdown(t.Context())

	// When
	resp, err := http.Get("http://" + s.Addr() + "/health")

	// Then
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}

func Test_Health_ShouldRejectWrongMethod(t *testing.T) {
	rec := httptest.NewRecorder()

	newTestServer(stubSource{state: bot.StateRunning}).Handler().
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
