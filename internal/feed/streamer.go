package feed

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fpolica91/Solana-Bots/internal/curve"
	"github.com/fpolica91/Solana-Bots/internal/observability"
	"github.com/fpolica91/Solana-Bots/internal/solana"
)

// Sink receives admitted token events. The trade lifecycle manager
// implements it.
type Sink interface {
	// Admit starts a trade cycle for the event's mint. Duplicate mints are
	// rejected, not queued.
	Admit(ctx context.Context, ev TokenEvent) error
}

// ErrAlreadyActive is returned by a Sink when the mint already has a running
// trade. The streamer treats it as a dropped duplicate, not a failure.
var ErrAlreadyActive = errors.New("trade already active for mint")

// Streamer subscribes to venue logs and feeds new-token events to the sink.
type Streamer struct {
	ws         solana.WSClient
	sink       Sink
	classifier Classifier
	log        logrus.FieldLogger
}

// NewStreamer creates a feed streamer.
func NewStreamer(ws solana.WSClient, sink Sink, classifier Classifier, log logrus.FieldLogger) *Streamer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Streamer{
		ws:         ws,
		sink:       sink,
		classifier: classifier,
		log:        log.WithField("component", "feed"),
	}
}

// Run subscribes and processes notifications until the context is cancelled
// or the subscription channel closes. Per-message failures never stop the
// loop; reconnects are handled inside the websocket client.
func (s *Streamer) Run(ctx context.Context) error {
	notifs, err := s.ws.SubscribeLogs(ctx, solana.LogsFilter{
		Mentions: []string{curve.PumpFunProgram},
	})
	if err != nil {
		return err
	}

	s.log.Info("watching for new tokens")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notif, ok := <-notifs:
			if !ok {
				return errors.New("log subscription closed")
			}
			s.handleNotification(ctx, notif)
		}
	}
}

// handleNotification classifies one transaction's logs and admits any token
// creation it carries.
func (s *Streamer) handleNotification(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil {
		// Failed transactions never create tradable tokens.
		return
	}
	if len(notif.Logs) == 0 || !s.classifier.IsNewTokenEvent(notif.Logs) {
		return
	}

	for _, line := range notif.Logs {
		if !strings.Contains(line, programDataPrefix) {
			continue
		}
		ev, ok := ExtractIdentifiers(line)
		if !ok {
			continue
		}

		observability.RecordTokenDetected()
		s.log.WithFields(logrus.Fields{
			"mint":    ev.Mint,
			"curve":   ev.BondingCurve,
			"creator": ev.Creator,
			"sig":     notif.Signature,
		}).Info("new token detected")

		switch err := s.sink.Admit(ctx, ev); {
		case err == nil:
		case errors.Is(err, ErrAlreadyActive):
			s.log.WithField("mint", ev.Mint).Debug("duplicate event dropped")
		default:
			s.log.WithField("mint", ev.Mint).WithError(err).Error("admission failed")
		}
	}
}
