package handlers

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rpsboard/internal/event"
	"rpsboard/internal/round"
	"rpsboard/internal/session"
	"rpsboard/pkg/realtime"
)

type fakeServer struct {
	mu       sync.Mutex
	choices  []string
	ready    int
	readyErr error
}

func (f *fakeServer) SendChoice(_ context.Context, choice string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.choices = append(f.choices, choice)
	return nil
}

func (f *fakeServer) SendReady(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readyErr != nil {
		return f.readyErr
	}
	f.ready++
	return nil
}

type testClient struct {
	router  chi.Router
	loop    *realtime.Loop
	session *session.Session
	server  *fakeServer
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	return newTestClientWithView(t, nil)
}

func newTestClientWithView(t *testing.T, view *session.View) *testClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &fakeServer{}
	s := session.New(session.Config{Logger: logger, Sender: server, View: view})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	loop := realtime.NewLoop(0)
	go loop.Run(ctx)

	r := chi.NewRouter()
	NewClientHandler(logger, loop, s, server).RegisterRoutes(r)
	return &testClient{router: r, loop: loop, session: s, server: server}
}

func (c *testClient) apply(t *testing.T, events ...event.Event) {
	t.Helper()
	require.NoError(t, c.loop.Do(context.Background(), func() {
		for _, ev := range events {
			c.session.Handle(ev)
		}
	}))
}

func (c *testClient) do(method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("Hx-Request", "true")
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func TestPageRendersAllFragments(t *testing.T) {
	c := newTestClient(t)
	c.apply(t, event.Room{ClientID: 1, Join: true, Name: "Bob"})

	rec := c.do(http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Bob")
	assert.Contains(t, body, round.StatusWaitingGame)
	assert.Contains(t, body, "Bob joined the room")
}

func TestFragments(t *testing.T) {
	c := newTestClient(t)
	c.apply(t,
		event.Room{ClientID: 1, Join: true, Name: "Bob"},
		event.Room{ClientID: 2, Join: true, Name: "amy"},
		event.Points{ClientID: 1, Points: 4},
		event.Turn{ClientID: 2, TookTurn: true},
	)

	body := c.do(http.MethodGet, "/roster", nil, true).Body.String()
	assert.Less(t, strings.Index(body, "Bob"), strings.Index(body, "amy"), "higher score ranks first")
	assert.Contains(t, body, `data-state="turn"`)

	body = c.do(http.MethodGet, "/notices", nil, true).Body.String()
	assert.Less(t, strings.Index(body, "amy joined"), strings.Index(body, "Bob joined"), "newest notice first")

	assert.Empty(t, c.do(http.MethodGet, "/summary", nil, true).Body.String())
}

func TestSubmitChoice(t *testing.T) {
	c := newTestClient(t)
	form := url.Values{"choice": {"Rock"}}

	rec := c.do(http.MethodPost, "/choice", form, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no round in progress")

	c.apply(t, event.PhaseChange{Phase: event.PhaseInProgress})
	rec = c.do(http.MethodPost, "/choice", form, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodPost, "/choice", url.Values{"choice": {"spock"}}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodPost, "/choice", url.Values{"choice": {"paper"}}, false)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.Equal(t, []string{"rock", "paper"}, c.server.choices)
	assert.Contains(t, c.do(http.MethodGet, "/round", nil, true).Body.String(), "You picked: paper")
}

func TestUpdateOptionsAppliesNextRound(t *testing.T) {
	c := newTestClient(t)
	c.apply(t, event.PhaseChange{Phase: event.PhaseInProgress})

	rec := c.do(http.MethodPost, "/options", url.Values{"extended": {"on"}, "cooldown": {"on"}}, true)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, round.Options{Extended: true, Cooldown: true}, c.session.Options())
	assert.NotContains(t, c.do(http.MethodGet, "/round", nil, true).Body.String(), "Lizard</button>")

	c.apply(t, event.PhaseChange{Phase: event.PhaseReady}, event.PhaseChange{Phase: event.PhaseInProgress})
	assert.Contains(t, c.do(http.MethodGet, "/round", nil, true).Body.String(), "Lizard</button>")
}

func TestMarkReady(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/ready", nil, true).Code)
	assert.Equal(t, 1, c.server.ready)

	c.server.readyErr = errors.New("offline")
	assert.Equal(t, http.StatusBadGateway, c.do(http.MethodPost, "/ready", nil, true).Code)
}

func TestSummaryDownloads(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/summary.png", nil, false).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/summary.xlsx", nil, false).Code)

	c.apply(t,
		event.Room{ClientID: 1, Join: true, Name: "Bob"},
		event.Room{ClientID: 2, Join: true, Name: "amy"},
		event.Points{ClientID: 2, Points: 3},
		event.PhaseChange{Phase: event.PhaseInProgress},
		event.PhaseChange{Phase: event.PhaseReady},
	)

	body := c.do(http.MethodGet, "/summary", nil, true).Body.String()
	assert.Contains(t, body, "Winner: amy")

	rec := c.do(http.MethodGet, "/summary.png", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = c.do(http.MethodGet, "/summary.xlsx", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scoreboard-1.xlsx")
	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	winner, err := f.GetCellValue("Scoreboard", "B2")
	require.NoError(t, err)
	assert.Equal(t, "amy", winner)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodPost, "/summary/dismiss", nil, true).Code)
	assert.Empty(t, c.do(http.MethodGet, "/summary", nil, true).Body.String())
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/summary.xlsx", nil, false).Code, "export survives dismissal")
}

func openStream(t *testing.T, c *testClient) func() (string, string) {
	t.Helper()
	ts := httptest.NewServer(c.router)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	return func() (string, string) {
		var name string
		var data []string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if name != "" {
					return name, strings.Join(data, "\n")
				}
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			}
		}
	}
}

func TestStreamPushesFragments(t *testing.T) {
	c := newTestClient(t)
	readEvent := openStream(t, c)

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		name, _ := readEvent()
		seen[name] = true
	}
	assert.Equal(t, map[string]bool{"roster": true, "round": true, "summary": true, "notices": true}, seen)

	c.apply(t, event.Room{ClientID: 7, Join: true, Name: "Dot", Quiet: true})
	name, data := readEvent()
	assert.Equal(t, "roster", name)
	assert.Contains(t, data, "Dot")
}

func TestStreamCatchesUpAfterDroppedTopics(t *testing.T) {
	c := newTestClientWithView(t, session.NewView(realtime.NewBroadcaster(1), 0))
	readEvent := openStream(t, c)
	for i := 0; i < 4; i++ {
		readEvent()
	}

	// One loop task publishes roster, notices and round back to back, more
	// than a one-slot subscriber can hold.
	c.apply(t,
		event.Room{ClientID: 7, Join: true, Name: "Dot"},
		event.PhaseChange{Phase: event.PhaseInProgress},
	)

	want := map[string]string{
		"roster":  "Dot",
		"notices": "Dot joined the room",
		"round":   round.StatusChoose,
	}
	for len(want) > 0 {
		name, data := readEvent()
		if needle, ok := want[name]; ok && strings.Contains(data, needle) {
			delete(want, name)
		}
	}
}

func TestPendingTopicsCoalesces(t *testing.T) {
	hub := realtime.NewBroadcaster(4)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	hub.Publish(session.TopicNotices)
	hub.Publish(session.TopicRoster)
	hub.Publish(session.TopicNotices)
	assert.Equal(t, []realtime.Topic{session.TopicRoster, session.TopicNotices}, pendingTopics(hub, sub, <-sub))
	assert.Empty(t, sub)

	lagging := realtime.NewBroadcaster(1)
	slow := lagging.Subscribe()
	defer lagging.Unsubscribe(slow)
	lagging.Publish(session.TopicNotices)
	lagging.Publish(session.TopicRound)
	assert.Equal(t, session.Topics, pendingTopics(lagging, slow, <-slow))
}
