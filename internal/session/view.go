package session

import (
	"slices"
	"sync"
	"time"

	"rpsboard/internal/roster"
	"rpsboard/internal/round"
	"rpsboard/pkg/realtime"
)

// Stream topics published whenever part of the view changes.
const (
	TopicRoster  realtime.Topic = "roster"
	TopicRound   realtime.Topic = "round"
	TopicSummary realtime.Topic = "summary"
	TopicNotices realtime.Topic = "notices"
)

// Topics lists every view topic in page order.
var Topics = []realtime.Topic{TopicRoster, TopicRound, TopicSummary, TopicNotices}

// Notice is one line of the textual side channel.
type Notice struct {
	At   time.Time
	Text string
}

// Snapshot is a consistent copy of everything the UI renders.
type Snapshot struct {
	Rows       []roster.Row
	Round      round.View
	Summary    roster.Summary
	HasSummary bool
	SummarySeq int
	Notices    []Notice
}

// View is the presentation sink. The event goroutine writes to it; HTTP
// handlers read snapshots from any goroutine.
type View struct {
	hub   *realtime.Broadcaster
	limit int
	now   func() time.Time

	mu         sync.RWMutex
	rows       []roster.Row
	round      round.View
	summary    roster.Summary
	hasSummary bool
	summarySeq int
	notices    []Notice
}

// NewView creates a view keeping up to noticeLimit notices.
func NewView(hub *realtime.Broadcaster, noticeLimit int) *View {
	if hub == nil {
		hub = realtime.NewBroadcaster(0)
	}
	if noticeLimit <= 0 {
		noticeLimit = 50
	}
	return &View{hub: hub, limit: noticeLimit, now: time.Now}
}

// Broadcaster returns the hub stream subscribers listen on.
func (v *View) Broadcaster() *realtime.Broadcaster {
	return v.hub
}

// RosterChanged implements roster.Sink.
func (v *View) RosterChanged(rows []roster.Row) {
	v.mu.Lock()
	v.rows = rows
	v.mu.Unlock()
	v.hub.Publish(TopicRoster)
}

// SessionEnded implements roster.Sink.
func (v *View) SessionEnded(summary roster.Summary) {
	v.mu.Lock()
	v.summary = summary
	v.hasSummary = true
	v.summarySeq++
	v.mu.Unlock()
	v.hub.Publish(TopicSummary)
}

// RoundChanged implements round.Sink.
func (v *View) RoundChanged(view round.View) {
	v.mu.Lock()
	v.round = view
	v.mu.Unlock()
	v.hub.Publish(TopicRound)
}

// Notify appends a notice, dropping the oldest past the limit.
func (v *View) Notify(text string) {
	v.mu.Lock()
	v.notices = append(v.notices, Notice{At: v.now().UTC(), Text: text})
	if over := len(v.notices) - v.limit; over > 0 {
		v.notices = slices.Delete(v.notices, 0, over)
	}
	v.mu.Unlock()
	v.hub.Publish(TopicNotices)
}

// DismissSummary hides the final scoreboard.
func (v *View) DismissSummary() {
	v.mu.Lock()
	v.hasSummary = false
	v.mu.Unlock()
	v.hub.Publish(TopicSummary)
}

// Snapshot returns a copy of the current view.
func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rnd := v.round
	rnd.Options = slices.Clone(v.round.Options)
	return Snapshot{
		Rows:       slices.Clone(v.rows),
		Round:      rnd,
		Summary:    roster.Summary{Rows: slices.Clone(v.summary.Rows)},
		HasSummary: v.hasSummary,
		SummarySeq: v.summarySeq,
		Notices:    slices.Clone(v.notices),
	}
}
