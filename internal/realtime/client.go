package realtime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/olx/internal/shared"
)

const (
	defaultConnectTimeout = 5 * time.Second
	minBackoff            = time.Second
	maxBackoff            = 30 * time.Second
	maxFrameSize          = 1 << 20
)

// StreamPath is the relay path prefix for a channel stream.
const StreamPath = "/realtime/"

// Client subscribes to channels on a relay over server-sent events.
//
// The first subscriber on a channel opens a stream and the last Off closes it.
// Frames on one stream are delivered in order by a single goroutine.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	logger         *log.Logger
	hub            *Hub
	ConnectTimeout time.Duration

	mu      sync.Mutex
	streams map[string]*stream
}

type stream struct {
	cancel context.CancelFunc
	ready  chan struct{}
	once   sync.Once
	err    error
	done   chan struct{}
}

func (s *stream) settle(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.ready)
	})
}

// NewClient creates a relay client. A nil httpClient uses a client without a request timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     httpClient,
		logger:         logger,
		hub:            NewHub(),
		ConnectTimeout: defaultConnectTimeout,
		streams:        make(map[string]*stream),
	}
	c.hub.OnIdle(c.closeStream)
	return c
}

// StreamURL returns the relay URL for channel.
func (c *Client) StreamURL(channel string) string {
	return c.baseURL + StreamPath + url.PathEscape(channel)
}

// On registers fn on channel and waits until the stream is connected.
func (c *Client) On(channel string, fn Handler) (*Subscription, error) {
	c.mu.Lock()
	st, ok := c.streams[channel]
	if !ok {
		st = c.openStream(channel)
	}
	sub, err := c.hub.On(channel, fn)
	c.mu.Unlock()
	if err != nil {
		if !ok {
			c.closeStream(channel)
		}
		return nil, err
	}

	timer := time.NewTimer(c.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-st.ready:
		if st.err != nil {
			sub.Off()
			return nil, fmt.Errorf("subscribe %s: %w", channel, st.err)
		}
		return sub, nil
	case <-timer.C:
		sub.Off()
		return nil, fmt.Errorf("subscribe %s: %w", channel, shared.ErrTimeout)
	}
}

// Close stops every open stream.
func (c *Client) Close() {
	c.mu.Lock()
	streams := c.streams
	c.streams = make(map[string]*stream)
	c.mu.Unlock()

	for _, st := range streams {
		st.cancel()
		<-st.done
	}
}

// Publish posts an event to channel on the relay.
func (c *Client) Publish(ctx context.Context, channel string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.StreamURL(channel), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: relay returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// openStream starts the stream goroutine for channel. Caller holds c.mu.
func (c *Client) openStream(channel string) *stream {
	ctx, cancel := context.WithCancel(context.Background())
	st := &stream{cancel: cancel, ready: make(chan struct{}), done: make(chan struct{})}
	c.streams[channel] = st
	go c.run(ctx, channel, st)
	return st
}

func (c *Client) closeStream(channel string) {
	c.mu.Lock()
	st, ok := c.streams[channel]
	if ok && c.hub.Subscribers(channel) == 0 {
		delete(c.streams, channel)
	} else {
		ok = false
	}
	c.mu.Unlock()

	if ok {
		st.cancel()
	}
}

func (c *Client) run(ctx context.Context, channel string, st *stream) {
	defer close(st.done)
	defer st.settle(context.Canceled)

	backoff := minBackoff
	for {
		connected, err := c.consume(ctx, channel, st)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = minBackoff
		}
		st.settle(err)

		c.logger.Warn("realtime stream interrupted", "channel", channel, "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// consume reads one connection until it ends. It reports whether the stream was established.
func (c *Client) consume(ctx context.Context, channel string, st *stream) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(channel), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: relay returned %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	st.settle(nil)
	c.logger.Debug("realtime stream connected", "channel", channel)

	err = readFrames(resp.Body, func(data []byte) {
		if !json.Valid(data) {
			c.logger.Warn("dropping malformed realtime frame", "channel", channel, "bytes", len(data))
			return
		}
		c.hub.Publish(channel, json.RawMessage(data))
	})
	if err == nil {
		err = io.EOF
	}
	return true, err
}

// readFrames parses an event stream and calls emit with the data of each complete frame.
func readFrames(r io.Reader, emit func([]byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameSize)

	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				emit(bytes.Clone(data.Bytes()))
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
