package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContactCache maps a CRM contact email to its contact id.
type ContactCache struct {
	client    *Client
	keyPrefix string
	ttl       time.Duration
}

func NewContactCache(client *Client, ttl time.Duration) *ContactCache {
	return &ContactCache{
		client:    client,
		keyPrefix: "organizer:crm:contact:",
		ttl:       ttl,
	}
}

func (c *ContactCache) key(email string) string {
	return c.keyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Get returns the cached contact id. ok is false on a miss.
func (c *ContactCache) Get(ctx context.Context, email string) (string, bool, error) {
	id, err := c.client.Get(ctx, c.key(email))
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (c *ContactCache) Set(ctx context.Context, email, contactID string) error {
	return c.client.Set(ctx, c.key(email), contactID, c.ttl)
}

func (c *ContactCache) Delete(ctx context.Context, email string) error {
	return c.client.Del(ctx, c.key(email))
}
