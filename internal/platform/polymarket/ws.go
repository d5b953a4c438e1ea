package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// PriceUpdate is a live outcome-price observation from the market channel,
// already scaled to the canonical 0-100 model.
type PriceUpdate struct {
	TokenID string
	Price   float64
}

// PriceUpdateHandler is called for each incremental price change.
type PriceUpdateHandler func(PriceUpdate)

// WSClient is a WebSocket client for the Polymarket CLOB market data feed.
// It manages the connection lifecycle, subscriptions, and dispatches price
// updates to the registered handler.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool

	// writeMu serializes connection writes; gorilla/websocket allows at
	// most one concurrent writer, and pings race with subscriptions.
	writeMu sync.Mutex

	// Subscriptions to restore on reconnect.
	subscriptions []WSCommand

	onPrice PriceUpdateHandler

	done    chan struct{}
	readErr chan error
}

// NewWSClient creates a new WebSocket client for the given endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string, onPrice PriceUpdateHandler) *WSClient {
	return &WSClient{
		wsURL:   wsURL,
		onPrice: onPrice,
		done:    make(chan struct{}),
		readErr: make(chan error, 1),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. Previously registered subscriptions are restored after reconnect.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: client closed")
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(conn, cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe subscribes to price changes for the given outcome token IDs.
func (w *WSClient) Subscribe(tokenIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	cmd := WSCommand{Type: "subscribe", Channel: "price_change", Assets: tokenIDs}
	if err := w.sendCommand(w.conn, cmd); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}

	// A new asset set replaces the previous subscription on that channel.
	replaced := false
	for i := range w.subscriptions {
		if w.subscriptions[i].Channel == cmd.Channel {
			w.subscriptions[i] = cmd
			replaced = true
			break
		}
	}
	if !replaced {
		w.subscriptions = append(w.subscriptions, cmd)
	}
	return nil
}

// WaitDisconnect blocks until the read loop fails, the client is closed, or
// ctx is done. It returns the read error, if any.
func (w *WSClient) WaitDisconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	case err := <-w.readErr:
		return err
	}
}

// Close shuts the client down. Safe to call multiple times.
func (w *WSClient) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
	if w.conn != nil {
		w.conn.Close()
	}
}

func (w *WSClient) sendCommand(conn *websocket.Conn, cmd WSCommand) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(cmd)
}

func (w *WSClient) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case w.readErr <- err:
			default:
			}
			return
		}
		w.dispatch(data)
	}
}

// dispatch decodes a market-channel message and forwards price changes.
// Messages arrive either as a single object or as an array of events.
func (w *WSClient) dispatch(data []byte) {
	var events []WSPriceChange
	if err := json.Unmarshal(data, &events); err != nil {
		var single WSPriceChange
		if err := json.Unmarshal(data, &single); err != nil {
			return
		}
		events = []WSPriceChange{single}
	}

	for _, ev := range events {
		if ev.EventType != "price_change" || ev.AssetID == "" {
			continue
		}
		p, err := strconv.ParseFloat(ev.Price, 64)
		if err != nil {
			continue
		}
		if w.onPrice != nil {
			w.onPrice(PriceUpdate{TokenID: ev.AssetID, Price: p * 100})
		}
	}
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			w.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
