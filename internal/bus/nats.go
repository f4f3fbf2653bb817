// internal/bus/nats.go
package bus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps a NATS connection used as the push channel for job updates.
type Client struct {
	nc *nats.Conn

	mu      sync.Mutex
	onError map[int]func(error)
	nextID  int
}

func Connect(url string) (*Client, error) {
	c := &Client{onError: make(map[int]func(error))}
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.fireError(err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			c.fireError(nc.LastError())
		}),
	)
	if err != nil {
		return nil, err
	}
	c.nc = nc
	return c, nil
}

func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) Conn() *nats.Conn { return c.nc }

// NotifyError registers fn to be called on connection-level failures.
// The returned func removes the registration.
func (c *Client) NotifyError(fn func(error)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.onError[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.onError, id)
		c.mu.Unlock()
	}
}

func (c *Client) fireError(err error) {
	c.mu.Lock()
	fns := make([]func(error), 0, len(c.onError))
	for _, fn := range c.onError {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (c *Client) PublishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.nc.Publish(subject, b)
}

func (c *Client) SubscribeJSON(subject string, handler func(data []byte)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}
