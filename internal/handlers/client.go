package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rpsboard/internal/report"
	"rpsboard/internal/roster"
	"rpsboard/internal/round"
	"rpsboard/internal/session"
	"rpsboard/internal/viewmodel"
	"rpsboard/internal/views"
	"rpsboard/pkg/realtime"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReadySender marks the local player ready on the server.
type ReadySender interface {
	SendReady(ctx context.Context) error
}

type ClientHandler struct {
	logger    *slog.Logger
	loop      *realtime.Loop
	session   *session.Session
	ready     ReadySender
	title     string
	keepAlive time.Duration
}

func NewClientHandler(logger *slog.Logger, loop *realtime.Loop, s *session.Session, ready ReadySender) *ClientHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientHandler{
		logger:    logger,
		loop:      loop,
		session:   s,
		ready:     ready,
		title:     "Rock Paper Scissors",
		keepAlive: 25 * time.Second,
	}
}

func (h *ClientHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.stream)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/", h.page)
		r.Get("/roster", h.rosterFragment)
		r.Get("/round", h.roundFragment)
		r.Get("/summary", h.summaryFragment)
		r.Get("/notices", h.noticesFragment)
		r.Get("/summary.png", h.summaryChart)
		r.Get("/summary.xlsx", h.summaryWorkbook)
		r.Post("/choice", h.submitChoice)
		r.Post("/ready", h.markReady)
		r.Post("/options", h.updateOptions)
		r.Post("/summary/dismiss", h.dismissSummary)
	})
}

func (h *ClientHandler) page(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	render(w, r, views.ClientPage(viewmodel.ClientPage{
		Title:   h.title,
		Roster:  buildRosterFragment(snap.Rows),
		Round:   buildRoundFragment(snap.Round),
		Summary: buildSummaryFragment(snap),
		Notices: buildNoticesFragment(snap.Notices),
	}))
}

func (h *ClientHandler) rosterFragment(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	render(w, r, views.RosterFragment(buildRosterFragment(snap.Rows)))
}

func (h *ClientHandler) roundFragment(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	render(w, r, views.RoundFragment(buildRoundFragment(snap.Round)))
}

func (h *ClientHandler) summaryFragment(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	render(w, r, views.SummaryFragment(buildSummaryFragment(snap)))
}

func (h *ClientHandler) noticesFragment(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	render(w, r, views.NoticesFragment(buildNoticesFragment(snap.Notices)))
}

func (h *ClientHandler) submitChoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	choice := round.Choice(strings.ToLower(strings.TrimSpace(r.FormValue("choice"))))
	err := h.onLoop(r.Context(), func() error {
		return h.session.SubmitChoice(r.Context(), choice)
	})
	switch {
	case err == nil:
		h.finish(w, r, http.StatusNoContent, nil)
	case errors.Is(err, realtime.ErrLoopStopped):
		http.Error(w, "client is shutting down", http.StatusServiceUnavailable)
	case errors.Is(err, round.ErrNotInProgress), errors.Is(err, round.ErrCooldown), errors.Is(err, round.ErrUnavailable):
		h.finish(w, r, http.StatusConflict, err)
	default:
		h.logger.Warn("submit choice failed", "choice", choice, "error", err)
		h.finish(w, r, http.StatusBadGateway, err)
	}
}

func (h *ClientHandler) markReady(w http.ResponseWriter, r *http.Request) {
	if err := h.ready.SendReady(r.Context()); err != nil {
		h.logger.Warn("send ready failed", "error", err)
		h.session.View().Notify("Could not reach the server, try again.")
		h.finish(w, r, http.StatusBadGateway, err)
		return
	}
	h.finish(w, r, http.StatusNoContent, nil)
}

func (h *ClientHandler) updateOptions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	opts := round.Options{
		Extended: r.FormValue("extended") != "",
		Cooldown: r.FormValue("cooldown") != "",
	}
	err := h.onLoop(r.Context(), func() error {
		h.session.SetOptions(opts)
		return nil
	})
	if err != nil {
		http.Error(w, "client is shutting down", http.StatusServiceUnavailable)
		return
	}
	h.finish(w, r, http.StatusNoContent, nil)
}

func (h *ClientHandler) dismissSummary(w http.ResponseWriter, r *http.Request) {
	h.session.View().DismissSummary()
	h.finish(w, r, http.StatusNoContent, nil)
}

func (h *ClientHandler) summaryChart(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	if snap.SummarySeq == 0 {
		http.NotFound(w, r)
		return
	}
	data, err := report.ChartPNG(snap.Summary)
	if err != nil {
		h.logger.Error("render summary chart", "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func (h *ClientHandler) summaryWorkbook(w http.ResponseWriter, r *http.Request) {
	snap := h.session.View().Snapshot()
	if snap.SummarySeq == 0 {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, snap.Summary); err != nil {
		h.logger.Error("render summary workbook", "error", err)
		http.Error(w, "failed to render", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"scoreboard-%d.xlsx\"", snap.SummarySeq))
	_, _ = w.Write(buf.Bytes())
}

func (h *ClientHandler) stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	hub := h.session.View().Broadcaster()
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	send := func(topics ...realtime.Topic) {
		snap := h.session.View().Snapshot()
		for _, topic := range topics {
			switch topic {
			case session.TopicRoster:
				writeSSE(w, views.RosterID, renderToString(r, views.RosterFragment(buildRosterFragment(snap.Rows))))
			case session.TopicRound:
				writeSSE(w, views.RoundID, renderToString(r, views.RoundFragment(buildRoundFragment(snap.Round))))
			case session.TopicSummary:
				writeSSE(w, views.SummaryID, renderToString(r, views.SummaryFragment(buildSummaryFragment(snap))))
			case session.TopicNotices:
				writeSSE(w, views.NoticesID, renderToString(r, views.NoticesFragment(buildNoticesFragment(snap.Notices))))
			}
		}
		flusher.Flush()
	}

	send(session.Topics...)

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case topic, ok := <-sub:
			if !ok {
				return
			}
			send(pendingTopics(hub, sub, topic)...)
		case <-keepAlive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		}
	}
}

// pendingTopics collects first and every topic already queued behind it, in
// page order. A subscriber that lost topics gets every fragment.
func pendingTopics(hub *realtime.Broadcaster, sub chan realtime.Topic, first realtime.Topic) []realtime.Topic {
	dirty := map[realtime.Topic]bool{first: true}
	for drained := false; !drained; {
		select {
		case topic, ok := <-sub:
			if !ok {
				drained = true
				continue
			}
			dirty[topic] = true
		default:
			drained = true
		}
	}
	if hub.Lagged(sub) {
		return session.Topics
	}
	out := make([]realtime.Topic, 0, len(dirty))
	for _, topic := range session.Topics {
		if dirty[topic] {
			out = append(out, topic)
		}
	}
	return out
}

// onLoop runs fn on the session goroutine and returns its error.
func (h *ClientHandler) onLoop(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := h.loop.Do(ctx, func() { result <- fn() }); err != nil {
		return err
	}
	return <-result
}

// finish answers htmx requests with a status and plain form posts with a
// redirect back to the page.
func (h *ClientHandler) finish(w http.ResponseWriter, r *http.Request, status int, err error) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(status)
}

func buildRosterFragment(rows []roster.Row) viewmodel.RosterFragment {
	return viewmodel.RosterFragment{Rows: toRosterRows(rows)}
}

func toRosterRows(rows []roster.Row) []viewmodel.RosterRow {
	out := make([]viewmodel.RosterRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, viewmodel.RosterRow{
			Rank:         row.Rank,
			Name:         row.Name,
			Score:        row.Score,
			ScoreVisible: row.ScoreVisible(),
			Acted:        row.Acted(),
			Hint:         string(row.Hint),
		})
	}
	return out
}

func buildRoundFragment(v round.View) viewmodel.RoundFragment {
	opts := make([]viewmodel.OptionButton, 0, len(v.Options))
	for _, opt := range v.Options {
		opts = append(opts, viewmodel.OptionButton{
			Value:   string(opt.Choice),
			Label:   opt.Label,
			Enabled: opt.Enabled,
			Visible: opt.Visible,
		})
	}
	return viewmodel.RoundFragment{
		Phase:    string(v.Phase),
		Visible:  v.PanelVisible,
		Status:   v.Status,
		Options:  opts,
		Last:     string(v.Last),
		Extended: v.Settings.Extended,
		Cooldown: v.Settings.Cooldown,
	}
}

func buildSummaryFragment(snap session.Snapshot) viewmodel.SummaryFragment {
	data := viewmodel.SummaryFragment{
		Visible: snap.HasSummary,
		Seq:     snap.SummarySeq,
	}
	if winner, ok := snap.Summary.Winner(); ok {
		data.WinnerName = winner.Name
	}
	for _, row := range snap.Summary.Rows {
		data.Rows = append(data.Rows, viewmodel.RosterRow{
			Rank:         row.Rank,
			Name:         row.Name,
			Score:        row.RankScore(),
			ScoreVisible: true,
		})
	}
	return data
}

func buildNoticesFragment(notices []session.Notice) viewmodel.NoticesFragment {
	out := make([]viewmodel.Notice, 0, len(notices))
	for _, n := range slices.Backward(notices) {
		out = append(out, viewmodel.Notice{
			Time: n.At.Format(time.TimeOnly),
			Text: n.Text,
		})
	}
	return viewmodel.NoticesFragment{Notices: out}
}
