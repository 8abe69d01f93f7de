// Package session wires the roster and the round controller to the server's
// event stream and to the presentation view.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rpsboard/internal/event"
	"rpsboard/internal/metrics"
	"rpsboard/internal/roster"
	"rpsboard/internal/round"
)

// Names resolves and records display names.
type Names interface {
	DisplayName(id event.ID) string
	Remember(id event.ID, name string)
	Forget(id event.ID)
	Reset()
}

// Config collects a session's collaborators.
type Config struct {
	Logger  *slog.Logger
	Sender  round.Sender
	Names   Names
	View    *View
	Metrics *metrics.Metrics
	Options round.Options
}

// Session applies server events and player actions. All methods except
// View must run on the event goroutine.
type Session struct {
	logger  *slog.Logger
	names   Names
	view    *View
	metrics *metrics.Metrics
	roster  *roster.Roster
	round   *round.Controller
}

// New creates a session and renders its initial empty state.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Names == nil {
		cfg.Names = event.NewDirectory()
	}
	if cfg.View == nil {
		cfg.View = NewView(nil, 0)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	s := &Session{
		logger:  cfg.Logger,
		names:   cfg.Names,
		view:    cfg.View,
		metrics: cfg.Metrics,
	}
	s.roster = roster.New(cfg.Logger.With("component", "roster"), cfg.View)
	s.round = round.NewController(cfg.Logger.With("component", "round"), cfg.Sender, cfg.View, cfg.Options)
	cfg.View.RosterChanged(s.roster.Rows())
	cfg.View.RoundChanged(s.round.View())
	return s
}

// Handle applies one server event.
func (s *Session) Handle(ev event.Event) {
	s.metrics.EventsTotal.WithLabelValues(ev.Kind()).Inc()
	switch e := ev.(type) {
	case event.Room:
		s.handleRoom(e)
	case event.Disconnect:
		name := s.names.DisplayName(e.ClientID)
		s.names.Forget(e.ClientID)
		if !s.roster.Remove(e.ClientID) {
			s.anomaly(metrics.AnomalyRemoveUnknown)
			break
		}
		s.view.Notify(fmt.Sprintf("%s disconnected", name))
	case event.Ready:
		if !s.roster.SetReady(e.ClientID, e.Ready, e.Quiet) {
			s.anomaly(metrics.AnomalyUpdateUnknown)
			break
		}
		if e.ClientID != event.DefaultID && e.Ready && !e.Quiet {
			s.view.Notify(fmt.Sprintf("%s is ready", s.names.DisplayName(e.ClientID)))
		}
	case event.Points:
		if !s.roster.SetScore(e.ClientID, e.Points) {
			s.anomaly(metrics.AnomalyUpdateUnknown)
		}
	case event.Turn:
		if !s.roster.SetTurn(e.ClientID, e.TookTurn) {
			s.anomaly(metrics.AnomalyUpdateUnknown)
		}
	case event.PhaseChange:
		if s.roster.ObservePhase(e.Phase) {
			s.metrics.Summaries.Inc()
			s.view.Notify("Session over, final scoreboard is up")
		}
		s.round.ObservePhase(e.Phase)
	case event.ClientSync:
		s.names.Remember(e.ClientID, e.Name)
	default:
		s.logger.Warn("unhandled event", "kind", ev.Kind())
	}
	s.metrics.Participants.Set(float64(s.roster.Len()))
}

func (s *Session) handleRoom(e event.Room) {
	if e.ClientID == event.DefaultID {
		s.roster.Clear()
		s.names.Reset()
		return
	}
	s.names.Remember(e.ClientID, e.Name)
	name := s.names.DisplayName(e.ClientID)
	if e.Join {
		if !s.roster.Add(e.ClientID, name) {
			s.anomaly(metrics.AnomalyDuplicateAdd)
			return
		}
		if !e.Quiet {
			s.view.Notify(joinNotice(name, e.Room))
		}
		return
	}
	s.names.Forget(e.ClientID)
	if !s.roster.Remove(e.ClientID) {
		s.anomaly(metrics.AnomalyRemoveUnknown)
		return
	}
	if !e.Quiet {
		s.view.Notify(fmt.Sprintf("%s left the room", name))
	}
}

func joinNotice(name, room string) string {
	if room == "" {
		return fmt.Sprintf("%s joined the room", name)
	}
	return fmt.Sprintf("%s joined room %s", name, room)
}

// SubmitChoice forwards a player's choice through the round controller.
func (s *Session) SubmitChoice(ctx context.Context, choice round.Choice) error {
	err := s.round.Submit(ctx, choice)
	switch {
	case err == nil:
		s.metrics.ChoicesTotal.WithLabelValues("sent").Inc()
	case errors.Is(err, round.ErrCooldown):
		s.metrics.ChoicesTotal.WithLabelValues("cooldown").Inc()
	case errors.Is(err, round.ErrNotInProgress), errors.Is(err, round.ErrUnavailable):
		s.metrics.ChoicesTotal.WithLabelValues("rejected").Inc()
	default:
		s.metrics.ChoicesTotal.WithLabelValues("failed").Inc()
	}
	return err
}

// SetOptions updates the settings used by the next round.
func (s *Session) SetOptions(opts round.Options) {
	s.round.SetOptions(opts)
}

// Options returns the settings the next round will use.
func (s *Session) Options() round.Options {
	return s.round.Options()
}

// View returns the presentation sink. It is safe to use from any goroutine.
func (s *Session) View() *View {
	return s.view
}

func (s *Session) anomaly(kind string) {
	s.metrics.AnomaliesTotal.WithLabelValues(kind).Inc()
}
