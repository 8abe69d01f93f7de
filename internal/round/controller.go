// Package round drives the choice panel through the server's round phases.
package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rpsboard/internal/event"
)

var (
	// ErrNotInProgress is returned when a choice is submitted outside a round.
	ErrNotInProgress = errors.New("round: no round in progress")
	// ErrCooldown is returned when cooldown forbids repeating the last choice.
	ErrCooldown = errors.New("round: choice is on cooldown")
	// ErrUnavailable is returned for choices not offered this round.
	ErrUnavailable = errors.New("round: choice not available")
	// ErrNoSender is returned by a controller built without a Sender.
	ErrNoSender = errors.New("round: no sender configured")
)

// Status lines shown above the choice panel.
const (
	StatusWaitingGame    = "Waiting for game..."
	StatusWaitingPlayers = "Waiting for players to be ready..."
	StatusChoose         = "Choose your option!"
	StatusSendError      = "Error sending choice."
)

// Sender submits a choice to the server.
type Sender interface {
	SendChoice(ctx context.Context, choice string) error
}

type noSender struct{}

func (noSender) SendChoice(context.Context, string) error { return ErrNoSender }

// Sink receives the panel state after every change.
type Sink interface {
	RoundChanged(view View)
}

// OptionState is the rendering state of one option button.
type OptionState struct {
	Choice  Choice
	Label   string
	Enabled bool
	Visible bool
}

// View is a snapshot of the choice panel.
type View struct {
	Phase        event.Phase
	PanelVisible bool
	Options      []OptionState
	Status       string
	Last         Choice
	Settings     Options
}

type button struct {
	enabled bool
	visible bool
}

// Controller is the round state machine. Like the roster it is owned by the
// event goroutine and must not be called concurrently.
type Controller struct {
	logger *slog.Logger
	sender Sender
	sink   Sink

	phase   event.Phase
	pending Options
	active  Options
	last    Choice
	panel   bool
	status  string
	buttons map[Choice]*button
}

// NewController creates a controller in the Ready phase with the panel hidden.
// A nil sender fails every submission with ErrNoSender.
func NewController(logger *slog.Logger, sender Sender, sink Sink, opts Options) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = noSender{}
	}
	c := &Controller{
		logger:  logger,
		sender:  sender,
		sink:    sink,
		phase:   event.PhaseReady,
		pending: opts,
		active:  opts,
		status:  StatusWaitingGame,
		buttons: make(map[Choice]*button, len(Choices)),
	}
	for _, choice := range Choices {
		c.buttons[choice] = &button{enabled: true, visible: !choice.Extra()}
	}
	return c
}

// SetOptions stores new settings. They take effect when the next round opens.
func (c *Controller) SetOptions(opts Options) {
	c.pending = opts
	c.logger.Info("round options updated", "extended", opts.Extended, "cooldown", opts.Cooldown)
	c.notify()
}

// Options returns the settings that the next round will use.
func (c *Controller) Options() Options {
	return c.pending
}

// ObservePhase moves the state machine.
func (c *Controller) ObservePhase(phase event.Phase) {
	c.phase = phase
	switch phase {
	case event.PhaseInProgress:
		c.openRound()
	case event.PhaseReady:
		c.panel = false
		c.status = StatusWaitingPlayers
	default:
		c.logger.Warn("ignoring unknown phase", "phase", phase)
		return
	}
	c.notify()
}

func (c *Controller) openRound() {
	c.active = c.pending
	c.panel = true
	c.status = StatusChoose
	for choice, b := range c.buttons {
		b.enabled = true
		b.visible = !choice.Extra() || c.active.Extended
	}
	if c.active.Cooldown && c.last != "" {
		if b, ok := c.buttons[c.last]; ok {
			b.enabled = false
		}
	}
}

// Submit sends choice to the server. A rejected or failed submission leaves
// the remembered last choice untouched.
func (c *Controller) Submit(ctx context.Context, choice Choice) error {
	if c.phase != event.PhaseInProgress {
		c.status = "No round in progress."
		c.notify()
		return ErrNotInProgress
	}
	if c.active.Cooldown && choice == c.last {
		c.status = fmt.Sprintf("Cooldown active: you can't pick %s twice in a row.", choice)
		c.notify()
		return fmt.Errorf("%w: %s", ErrCooldown, choice)
	}
	b, ok := c.buttons[choice]
	if !ok || !b.visible || !b.enabled {
		c.status = fmt.Sprintf("%s is not available this round.", choice.Label())
		c.notify()
		return fmt.Errorf("%w: %s", ErrUnavailable, choice)
	}

	if err := c.sender.SendChoice(ctx, string(choice)); err != nil {
		c.logger.Warn("sending choice failed", "choice", choice, "error", err)
		c.status = StatusSendError
		c.notify()
		return fmt.Errorf("send choice: %w", err)
	}
	c.last = choice
	c.status = fmt.Sprintf("You picked: %s, waiting...", choice)
	if c.active.Cooldown {
		b.enabled = false
	}
	c.notify()
	return nil
}

// Phase returns the current phase.
func (c *Controller) Phase() event.Phase {
	return c.phase
}

// Last returns the last successfully submitted choice.
func (c *Controller) Last() Choice {
	return c.last
}

// View returns the current panel snapshot.
func (c *Controller) View() View {
	opts := make([]OptionState, 0, len(Choices))
	for _, choice := range Choices {
		b := c.buttons[choice]
		opts = append(opts, OptionState{
			Choice:  choice,
			Label:   choice.Label(),
			Enabled: b.enabled,
			Visible: b.visible,
		})
	}
	return View{
		Phase:        c.phase,
		PanelVisible: c.panel,
		Options:      opts,
		Status:       c.status,
		Last:         c.last,
		Settings:     c.pending,
	}
}

func (c *Controller) notify() {
	if c.sink != nil {
		c.sink.RoundChanged(c.View())
	}
}
