// Package push sends the silent wake-up notifications that tell wallet
// devices to re-fetch their pass. Pushes carry no payload.
package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"

	"github.com/punchcard/backend/internal/config"
)

// Client delivers one wake-up push to a device token.
type Client interface {
	Push(ctx context.Context, pushToken string) error
}

// APNsClient pushes through Apple's APNs using the pass certificate.
type APNsClient struct {
	client *apns2.Client
	topic  string
}

func NewAPNsClient(cfg config.APNsConfig, passTypeID string) (*APNsClient, error) {
	cert, err := certificate.FromP12File(cfg.CertPath, cfg.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsClient{client: client, topic: passTypeID}, nil
}

func (c *APNsClient) Push(ctx context.Context, pushToken string) error {
	notification := &apns2.Notification{
		DeviceToken: pushToken,
		Topic:       c.topic,
		Payload:     []byte(`{}`),
	}

	res, err := c.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("apns push failed: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected push: %s", res.Reason)
	}
	return nil
}

// NopClient is used when APNs is not configured; pushes are dropped.
type NopClient struct{}

func (NopClient) Push(context.Context, string) error { return nil }
