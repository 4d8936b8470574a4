package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WSConfig configures websocket client behavior.
type WSConfig struct {
	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
	// PingInterval is the interval for keepalive ping frames.
	PingInterval time.Duration
	// ReadTimeout bounds a single read; a missed deadline forces reconnect.
	ReadTimeout time.Duration
	// WriteTimeout bounds subscribe/ping writes.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:   5 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// WSClientImpl implements WSClient over gorilla/websocket. Each subscription
// owns a connection that is re-dialed and re-subscribed after any failure,
// indefinitely, until Close or context cancellation.
type WSClientImpl struct {
	endpoint string
	config   WSConfig
	log      logrus.FieldLogger

	requestID  atomic.Uint64
	closed     atomic.Bool
	reconnects atomic.Uint64
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewWSClient creates a websocket client for the endpoint. The connection is
// established lazily on the first subscription.
func NewWSClient(endpoint string, config *WSConfig, log logrus.FieldLogger) *WSClientImpl {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSClientImpl{
		endpoint: endpoint,
		config:   cfg,
		log:      log.WithField("component", "ws"),
		done:     make(chan struct{}),
	}
}

// Reconnects returns the number of reconnects performed so far.
func (c *WSClientImpl) Reconnects() uint64 {
	return c.reconnects.Load()
}

// SubscribeLogs starts a subscription pump. The returned channel survives
// reconnects; notifications are delivered blocking so nothing is dropped.
func (c *WSClientImpl) SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("ws client closed")
	}

	// Buffer absorbs bursts; the pump blocks rather than dropping events.
	ch := make(chan LogNotification, 1024)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(ch)
		c.pump(ctx, filter, ch)
	}()

	return ch, nil
}

// Close shuts down all subscription pumps.
func (c *WSClientImpl) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	c.wg.Wait()
	return nil
}

// pump runs the connect → subscribe → read loop until shutdown.
func (c *WSClientImpl) pump(ctx context.Context, filter LogsFilter, out chan<- LogNotification) {
	first := true
	for {
		if c.stopped(ctx) {
			return
		}
		if !first {
			c.reconnects.Add(1)
			c.log.WithField("delay", c.config.ReconnectDelay).Warn("reconnecting")
			select {
			case <-time.After(c.config.ReconnectDelay):
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
		first = false

		conn, err := c.dial(ctx)
		if err != nil {
			c.log.WithError(err).Error("dial failed")
			continue
		}

		if err := c.subscribe(conn, filter); err != nil {
			c.log.WithError(err).Error("subscribe failed")
			conn.Close()
			continue
		}
		c.log.Info("subscribed to logs")

		c.readUntilError(ctx, conn, out)
		conn.Close()
	}
}

func (c *WSClientImpl) stopped(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func (c *WSClientImpl) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// subscribe sends the logsSubscribe request and waits for its confirmation.
// Notifications that race ahead of the confirmation are not expected from
// well-behaved providers; the subscription id itself is not needed later
// because the connection carries exactly one subscription.
func (c *WSClientImpl) subscribe(conn *websocket.Conn, filter LogsFilter) error {
	commitment := filter.Commitment
	if commitment == "" {
		commitment = "confirmed"
	}

	mentions := make(map[string]interface{})
	if len(filter.Mentions) > 0 {
		mentions["mentions"] = filter.Mentions
	} else {
		mentions["all"] = nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			mentions,
			map[string]string{"commitment": commitment},
		},
	}

	conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.config.WriteTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read subscribe response: %w", err)
	}

	var resp wsSubscribeResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return fmt.Errorf("unmarshal subscribe response: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("subscribe rejected: code=%d msg=%s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// readUntilError forwards notifications until a read fails.
func (c *WSClientImpl) readUntilError(ctx context.Context, conn *websocket.Conn, out chan<- LogNotification) {
	pingStop := make(chan struct{})
	defer close(pingStop)
	go c.pingLoop(conn, pingStop)

	for {
		if c.stopped(ctx) {
			return
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.log.WithError(err).Warn("read failed")
			}
			return
		}

		var notif wsNotification
		if err := json.Unmarshal(message, &notif); err != nil || notif.Method != "logsNotification" || notif.Params == nil {
			continue
		}

		value := notif.Params.Result.Value
		logNotif := LogNotification{
			Signature: value.Signature,
			Logs:      value.Logs,
			Err:       value.Err,
		}
		if notif.Params.Result.Context != nil {
			logNotif.Slot = notif.Params.Result.Context.Slot
		}

		select {
		case out <- logNotif:
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// pingLoop keeps the connection alive between notifications.
func (c *WSClientImpl) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Dead connection; the reader notices on its next deadline.
				return
			}
		}
	}
}

// Websocket message types.

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsSubscribeResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  int64  `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}
