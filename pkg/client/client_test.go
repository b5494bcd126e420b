package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleCalls(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/api/"})
	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Stop(ctx))
	require.NoError(t, c.Restart(ctx))
	require.NoError(t, c.TestConfig(ctx, ""))
	require.NoError(t, c.TestConfig(ctx, "/opt/nginx/conf/nginx.conf"))
	require.NoError(t, c.ClearLog(ctx, "error"))
	require.NoError(t, c.OpenLogs(ctx))

	assert.Equal(t, []string{
		"POST /api/start",
		"POST /api/stop",
		"POST /api/restart",
		"POST /api/test",
		"POST /api/test?path=%2Fopt%2Fnginx%2Fconf%2Fnginx.conf",
		"POST /api/logs/clear?kind=error",
		"POST /api/logs/open",
	}, got)
}

func TestQueriesWithGock(t *testing.T) {
	defer gock.Off()
	gock.New("http://ngxvisor.test").Get("/api/version").
		Reply(200).JSON(map[string]string{"version": "nginx/1.24.0"})
	gock.New("http://ngxvisor.test").Get("/api/status").
		Reply(200).JSON(map[string]string{"status": "running"})
	gock.New("http://ngxvisor.test").Get("/api/info").MatchParam("cached", "1").
		Reply(200).BodyString(`{"status":"running","version":"nginx/1.24.0","uptime":"1:02:03","cpu_usage":0.5,"memory_usage":null,"active_connections":2,"total_connections":10,"requests_per_second":1}`)
	gock.New("http://ngxvisor.test").Get("/api/logs").
		MatchParam("kind", "error").MatchParam("lines", "5").MatchParam("level", `\[error\]`).
		Reply(200).JSON(map[string]string{"kind": "error", "content": "x [error] y"})
	gock.New("http://ngxvisor.test").Get("/api/logs/exists").MatchParam("kind", "access").
		Reply(200).JSON(map[string]any{"kind": "access", "exists": true})

	c := New(Config{BaseURL: "http://ngxvisor.test/api"})
	ctx := context.Background()

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nginx/1.24.0", v)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", st)

	info, err := c.Info(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, info.Uptime)
	assert.Equal(t, "1:02:03", *info.Uptime)
	assert.Nil(t, info.MemoryUsage)
	assert.Equal(t, uint64(10), *info.TotalConnections)

	out, err := c.Logs(ctx, LogsQuery{Kind: "error", Lines: 5, Level: "[error]"})
	require.NoError(t, err)
	assert.Equal(t, "x [error] y", out)

	ok, err := c.LogExists(ctx, "access")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, gock.IsDone())
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"start: binary missing: executable not found at /opt/nginx/nginx"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream"))
		}
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL})

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "binary missing")

	err = c.Stop(context.Background())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "HTTP 502", err.Error())
}

func TestIsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c := New(Config{BaseURL: srv.URL, Timeout: time.Second})
	assert.True(t, c.IsReachable(context.Background()))
	srv.Close()
	assert.False(t, c.IsReachable(context.Background()))
}

func TestFollowAndEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		switch r.URL.Path {
		case "/logs/follow":
			_, _ = fmt.Fprint(w, "event:line\ndata:first\n\n: keepalive\n\nevent:line\ndata:second\n\n")
		case "/events":
			_, _ = fmt.Fprint(w, "event:status\ndata:{\"kind\":\"lifecycle\",\"op\":\"stop\",\"at\":\"2026-01-02T03:04:05Z\"}\n\n")
		}
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL})

	var lines []string
	require.NoError(t, c.FollowLog(context.Background(), "access", func(l string) { lines = append(lines, l) }))
	assert.Equal(t, []string{"first", "second"}, lines)

	var events []Event
	require.NoError(t, c.Events(context.Background(), func(ev Event) { events = append(events, ev) }))
	require.Len(t, events, 1)
	assert.Equal(t, "stop", events[0].Op)
}

func TestReadSSEMultilineData(t *testing.T) {
	var got []string
	err := readSSE(strings.NewReader("data: a\ndata: b\n\nevent:x\n\n"), func(_, data string) error {
		got = append(got, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a\nb"}, got)
}
