package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "HANDOFFS"
	SubjectPrefix = "handoff"
)

// Config holds NATS connection settings. An empty URL disables the publisher.
type Config struct {
	URL    string        `envconfig:"NATS_URL"`
	Token  string        `envconfig:"NATS_TOKEN"`
	MaxAge time.Duration `envconfig:"HANDOFF_MAX_AGE" split_words:"true" default:"720h"`
}

// Subject returns the subject a ticket for the conversation is published on.
func Subject(tenantID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, tenantID, conversationID)
}

// JetStreamPublisher publishes tickets to a durable JetStream stream.
type JetStreamPublisher struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect dials NATS and makes sure the handoff stream exists.
func Connect(ctx context.Context, cfg Config) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("chative-handoff"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logx.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logx.Info().Msg("NATS reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{conn: nc, js: js}
	if err := p.ensureStream(ctx, cfg.MaxAge); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context, maxAge time.Duration) error {
	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		return nil
	}
	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      maxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Conversations handed over to human agents",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, tenantID, conversationID string, payload model.HandoffPayload) (string, error) {
	t := newTicket(tenantID, conversationID, payload)
	data, err := encode(t)
	if err != nil {
		return "", err
	}
	ack, err := p.js.Publish(ctx, Subject(tenantID, conversationID), data, jetstream.WithMsgID(t.ID))
	if err != nil {
		return "", fmt.Errorf("failed to publish handoff: %w", err)
	}
	logx.Info().
		Str("tenant_id", tenantID).
		Str("conversation_id", conversationID).
		Str("handoff_id", t.ID).
		Uint64("seq", ack.Sequence).
		Str("reason", string(payload.Reason)).
		Msg("Handoff published")
	return t.ID, nil
}

func (p *JetStreamPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
