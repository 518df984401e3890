package popup

import (
	"context"

	"github.com/byteowlz/pagebridge/internal/messaging"
)

// Extractor requests extraction from the active page
type Extractor interface {
	Extract(ctx context.Context, mode string) (string, error)
}

// Client sends extraction requests to the content context over the bus
type Client struct {
	bus    *messaging.Bus
	sender messaging.Sender
}

func NewClient(bus *messaging.Bus) *Client {
	return &Client{
		bus:    bus,
		sender: messaging.Sender{ID: "popup", Origin: "popup"},
	}
}

func (c *Client) Extract(ctx context.Context, mode string) (string, error) {
	res, err := c.bus.SendMessage(ctx, messaging.Message{
		Action: messaging.ActionExtractContent,
		Mode:   mode,
	}, c.sender)
	if err != nil {
		return "", err
	}
	return res.Response.Content, nil
}
