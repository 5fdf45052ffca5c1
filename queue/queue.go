package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de7fp/restaurant-rag/config"
	"github.com/de7fp/restaurant-rag/logger"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// EmbedRequest asks the embedder to (re)embed one row.
type EmbedRequest struct {
	Table string `json:"table"`
	Kind  string `json:"kind"`
	ID    uint64 `json:"id"`
}

func (r EmbedRequest) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func ParseEmbedRequest(data []byte) (EmbedRequest, error) {
	var req EmbedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("invalid embed request: %w", err)
	}
	if req.ID == 0 {
		return req, errors.New("invalid embed request: missing id")
	}
	return req, nil
}

// Client is a JetStream connection bound to one stream.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

func Connect(cfg config.Nats) (*Client, error) {
	return ConnectURL(cfg.ConnStr(), cfg.Stream, cfg.RestaurantsSubject)
}

// ConnectURL connects and makes sure stream exists with the given subjects.
func ConnectURL(url, stream string, subjects ...string) (*Client, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:      stream,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Hour * 24 * 7,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", stream, err)
	}

	return &Client{conn: nc, js: js}, nil
}

func (c *Client) Close() {
	c.conn.Close()
}

func (c *Client) Publish(subject string, data []byte) error {
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (c *Client) PublishEmbedRequest(subject string, req EmbedRequest) error {
	data, err := req.Marshal()
	if err != nil {
		return err
	}
	return c.Publish(subject, data)
}

// Subscribe pulls messages for subject until ctx is done. Handlers own
// acknowledging each message.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(m *nats.Msg)) error {
	subscription, err := c.js.PullSubscribe(subject, durableName(subject), nats.ManualAck())
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if err := subscription.Unsubscribe(); err != nil {
				logger.Warn("failed to unsubscribe from subject", zap.String("subject", subject), zap.Error(err))
			}

			return nil
		default:
			msgs, err := subscription.Fetch(4, nats.MaxWait(200*time.Millisecond))
			if err != nil && !errors.Is(err, nats.ErrTimeout) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			for _, msg := range msgs {
				handler(msg)
			}
		}
	}
}

func durableName(subject string) string {
	return strings.ReplaceAll(subject+".consumer", ".", "-")
}
