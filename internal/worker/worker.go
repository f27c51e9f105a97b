// Package worker provides a NATS worker that serves render requests.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/cinema-ai/cinema-service/internal/request"
)

// handleMessageTimeout bounds one render job. Script renders run many engine
// calls, so the bound is generous.
const handleMessageTimeout = 30 * time.Minute

// NatsWorker listens for render envelopes on a NATS subject and replies with
// the router's response.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	router         *request.Router
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	router *request.Router,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		router:         router,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// handleMessage routes one envelope and replies with the response body, or
// with the error body when handling fails. Messages without a reply subject
// are processed for their side effects only.
func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	body, handleErr := w.router.Handle(ctx, msg.Data)
	if handleErr != nil {
		w.log.Error("Render request failed: %v", handleErr)

		w.reply(msg, handleErr.Body())

		return
	}

	w.reply(msg, body)
}

// reply marshals and responds with the given body.
func (w *NatsWorker) reply(msg *nats.Msg, body any) {
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(body)
	if err != nil {
		w.log.Error("Failed to marshal reply: %v", err)

		return
	}

	err = msg.Respond(data)
	if err != nil {
		w.log.Error("Failed to publish reply: %v", err)
	}
}
