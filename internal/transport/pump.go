// Package transport holds the wire-independent part of streaming AG-UI events
// to a client.
package transport

import (
	"context"
	"iter"

	"github.com/ag-ui-protocol/ag-ui/sdks/community/go/pkg/core/events"
	"github.com/sirupsen/logrus"

	"agui-bridge/internal/metrics"
)

// EventSender writes one event to the client and flushes it.
type EventSender interface {
	SendEvent(event events.Event) error
}

// Pump forwards events from seq to sender as they arrive and reports how many
// were sent.
//
// A failure of seq before anything was sent is returned untouched so the
// caller can answer with a request-level error. A failure after the first
// event is logged here, once, and also returned; the caller must not log it
// again. A send failure or a done ctx means the client went away: Pump stops
// pulling and returns a nil error. ctx is the client's context, never one
// bounded by a run deadline; an expired run deadline is a failure.
func Pump(ctx context.Context, seq iter.Seq2[events.Event, error], sender EventSender, log logrus.FieldLogger, m *metrics.Metrics) (int, error) {
	sent := 0
	for ev, err := range seq {
		if err != nil {
			if ctx.Err() != nil {
				log.WithError(err).Debug("client disconnected before the run completed")
				return sent, nil
			}
			if sent == 0 {
				return 0, err
			}
			log.WithError(err).WithField("events_sent", sent).Error("run failed after the stream opened")
			return sent, err
		}

		if err := sender.SendEvent(ev); err != nil {
			log.WithError(err).WithField("events_sent", sent).Debug("client disconnected, stopping stream")
			return sent, nil
		}
		sent++
		m.EventSent(string(ev.Type()))
	}
	return sent, nil
}
