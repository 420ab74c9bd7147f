package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dex_sim/internal/domain"
	"dex_sim/internal/engine"
	"dex_sim/internal/event"
	"dex_sim/internal/strategy"
)

// Client command types
const (
	CmdSelectPair  = "select_pair"
	CmdReset       = "reset"
	CmdPause       = "pause"
	CmdResume      = "resume"
	CmdSetInterval = "set_interval"
	CmdSetStrategy = "set_strategy"
	CmdMevStart    = "mev_start"
	CmdMevStop     = "mev_stop"
	CmdMevReset    = "mev_reset"
)

var knownCommands = map[string]bool{
	CmdSelectPair:  true,
	CmdReset:       true,
	CmdPause:       true,
	CmdResume:      true,
	CmdSetInterval: true,
	CmdSetStrategy: true,
	CmdMevStart:    true,
	CmdMevStop:     true,
	CmdMevReset:    true,
}

var (
	// ErrUnknownCommand is returned for a command type the feed does not handle.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInboxFull is returned when the sequencer cannot accept more control events.
	ErrInboxFull = errors.New("sequencer busy")
)

// handleCommand validates a client command and forwards it. Market control
// goes through the sequencer inbox; MEV control is applied directly.
func (s *Server) handleCommand(cmd Command) error {
	now := time.Now()

	switch cmd.Type {
	case CmdSelectPair:
		pair, err := s.resolvePair(cmd.Pair)
		if err != nil {
			return err
		}
		return s.enqueue(&event.SelectPairEvent{BaseEvent: event.BaseEvent{Ts: now}, Pair: pair})

	case CmdReset:
		pair := ""
		if cmd.Pair != "" {
			var err error
			if pair, err = s.resolvePair(cmd.Pair); err != nil {
				return err
			}
		}
		return s.enqueue(&event.ResetEvent{BaseEvent: event.BaseEvent{Ts: now}, Pair: pair})

	case CmdPause:
		return s.enqueue(&event.PauseEvent{BaseEvent: event.BaseEvent{Ts: now}})

	case CmdResume:
		return s.enqueue(&event.ResumeEvent{BaseEvent: event.BaseEvent{Ts: now}})

	case CmdSetInterval:
		d := time.Duration(cmd.IntervalMS) * time.Millisecond
		if d < engine.MinInterval {
			return fmt.Errorf("interval must be at least %v", engine.MinInterval)
		}
		return s.enqueue(&event.SetIntervalEvent{BaseEvent: event.BaseEvent{Ts: now}, Interval: d})

	case CmdSetStrategy, CmdMevStart, CmdMevStop, CmdMevReset:
		if s.deps.Mev == nil {
			return errors.New("mev simulator disabled")
		}
		return s.handleMevCommand(cmd)
	}

	return fmt.Errorf("%q: %w", cmd.Type, ErrUnknownCommand)
}

func (s *Server) handleMevCommand(cmd Command) error {
	switch cmd.Type {
	case CmdSetStrategy:
		id, err := strategy.Parse(cmd.Strategy)
		if err != nil {
			return err
		}
		return s.deps.Mev.SetStrategy(id)
	case CmdMevStart:
		s.deps.Mev.Start()
	case CmdMevStop:
		s.deps.Mev.Stop()
	case CmdMevReset:
		s.deps.Mev.Reset(context.Background())
	}
	return nil
}

func (s *Server) resolvePair(raw string) (string, error) {
	pair := NormalizePair(raw)
	for _, p := range s.deps.Sequencer.Pairs() {
		if p.Symbol == pair {
			return pair, nil
		}
	}
	return "", fmt.Errorf("%s: %w", pair, domain.ErrUnknownPair)
}

func (s *Server) enqueue(ev event.Event) error {
	select {
	case s.deps.Sequencer.Inbox() <- ev:
		return nil
	default:
		return ErrInboxFull
	}
}
