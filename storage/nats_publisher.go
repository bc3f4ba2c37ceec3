package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"price-matcher/models"
	"price-matcher/utils"
)

// Header names attached to every published comparison.
const (
	HeaderRunID    = "Run-Id"
	HeaderGroupKey = "Group-Key"
)

// natsHeaderCarrier adapts nats.Msg headers for the OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSPublisher emits one message per comparison so downstream alerting can
// react to new deals without polling the database.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *utils.Logger
}

// NewNATSPublisher connects to the broker, retrying while it comes up.
func NewNATSPublisher(ctx context.Context, url, subject string, retry *utils.RetryConfig, logger *utils.Logger) (*NATSPublisher, error) {
	var nc *nats.Conn
	err := retry.Do(ctx, "nats connect", func() error {
		var err error
		nc, err = nats.Connect(url, nats.Name("price-matcher"))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("nats: connect %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

// Write publishes every comparison of the run, best deal first, and flushes.
func (p *NATSPublisher) Write(ctx context.Context, result *models.RunResult) error {
	run := runID(result)
	for _, c := range result.Comparisons {
		msg, err := comparisonMessage(ctx, p.subject, run, c)
		if err != nil {
			return err
		}
		if err := p.nc.PublishMsg(msg); err != nil {
			return fmt.Errorf("nats: publish %s: %w", c.GroupKey, err)
		}
	}
	if err := p.nc.Flush(); err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}
	p.logger.Info("[nats] Published %d comparisons to %s", len(result.Comparisons), p.subject)
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

func comparisonMessage(ctx context.Context, subject, run string, c *models.ComparisonResult) (*nats.Msg, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("nats: encode %s: %w", c.GroupKey, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderGroupKey, c.GroupKey)
	if run != "" {
		msg.Header.Set(HeaderRunID, run)
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}
