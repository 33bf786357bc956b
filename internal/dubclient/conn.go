package dubclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/gorilla/websocket"
)

// ========================= low-level =========================

const (
	pingEvery    = 10 * time.Second
	readDeadline = 30 * time.Second
)

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	if c.cfg.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(c.cfg.Username + ":" + c.cfg.Password))
		h.Set("Authorization", "Basic "+cred)
	}
	return h
}

// dial с установкой pong-handler'а, дедлайнов и запуском пингов
func (c *Client) dialAndSetup(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.SocketURL, c.authHeader())
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(8 << 20)

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	c.startPing(conn)
	return conn, nil
}

// безопасно закрыть текущее соединение
func (c *Client) closeConn() {
	c.stopPing()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return
	}

	c.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"),
		time.Now().Add(500*time.Millisecond))
	c.wmu.Unlock()
	_ = conn.Close()
}

func (c *Client) startPing(conn *websocket.Conn) {
	c.stopPing() // останавливаем предыдущий
	stop := make(chan struct{})
	c.mu.Lock()
	c.pingStop = stop
	c.mu.Unlock()

	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.wmu.Lock()
				_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
				c.wmu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopPing() {
	c.mu.Lock()
	stop := c.pingStop
	c.pingStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// field — строковое поле по пути, "" если его нет.
func field(p *gabs.Container, path ...string) string {
	if p == nil || p.Data() == nil {
		return ""
	}
	found := p.Search(path...)
	if found == nil {
		return ""
	}
	s, _ := found.Data().(string)
	return s
}

func flag(p *gabs.Container, path ...string) bool {
	if p == nil || p.Data() == nil {
		return false
	}
	found := p.Search(path...)
	if found == nil {
		return false
	}
	b, _ := found.Data().(bool)
	return b
}
