package dubclient

import (
	"fmt"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/gorilla/websocket"
)

// readLoop читает одно соединение до ошибки. Реконнекта здесь нет: при
// обрыве, который мы не инициировали, сбрасываем ожидающие колбэки и
// сообщаем наверх через OnDisconnected.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.lost(conn, err)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		c.handleFrame(data)
	}
}

func (c *Client) lost(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	c.mu.Unlock()

	// закрыли сами или это уже старое соединение после Connect
	if !current || c.closed.Load() {
		return
	}

	c.closed.Store(true)
	c.closeConn()
	c.failPendingCallbacks(ErrConnectionLost)

	h := c.getHooks()
	if h.OnError != nil {
		h.OnError(fmt.Errorf("read: %w", err))
	}
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

func (c *Client) handleFrame(data []byte) {
	frame, err := gabs.ParseJSON(data)
	if err != nil {
		if h := c.getHooks(); h.OnError != nil {
			h.OnError(fmt.Errorf("decode frame: %w", err))
		}
		return
	}

	// вендор иногда пачкует несколько сообщений в один кадр
	if _, batch := frame.Data().([]interface{}); batch {
		items, _ := frame.Children()
		for _, item := range items {
			c.handleMessage(item)
		}
		return
	}
	c.handleMessage(frame)
}

func (c *Client) handleMessage(msg *gabs.Container) {
	if _, ok := msg.Data().(map[string]interface{}); !ok {
		c.log.Debug("skipping non-object message")
		return
	}
	typ := field(msg, "type")

	if typ == "response" {
		id := field(msg, "id")
		c.mu.Lock()
		cb, ok := c.cbs[id]
		if ok {
			delete(c.cbs, id)
		}
		c.mu.Unlock()
		if !ok {
			c.log.Debug("response without pending request", "id", id)
			return
		}
		cb(Response{OK: flag(msg, "ok"), Err: field(msg, "error"), Data: payload(msg)})
		return
	}

	if typ == "" {
		c.log.Debug("message without type")
		return
	}
	if h := c.getHooks(); h.OnEvent != nil {
		h.OnEvent(RawEvent{Type: typ, Data: payload(msg), ReceivedAt: time.Now()})
	}
}

// payload — поле data; если его нет, сам объект.
func payload(msg *gabs.Container) *gabs.Container {
	if d := msg.Search("data"); d != nil && d.Data() != nil {
		return d
	}
	return msg
}
