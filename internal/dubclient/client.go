package dubclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected   = errors.New("dubclient: not connected")
	ErrConnectionLost = errors.New("dubclient: connection lost")
)

const joinTimeout = 15 * time.Second

type Config struct {
	APIURL    string
	SocketURL string
	Username  string
	Password  string
}

// RawEvent — событие вендора как есть: тип и пейлоад.
type RawEvent struct {
	Type       string
	Data       *gabs.Container
	ReceivedAt time.Time
}

// Response — ответ на запрос с тем же id.
type Response struct {
	OK   bool
	Err  string
	Data *gabs.Container
}

type Hooks struct {
	OnConnecting   func()
	OnConnected    func()
	OnEvent        func(RawEvent)
	OnDisconnected func()
	OnError        func(error)
}

type Client struct {
	cfg    Config
	http   *http.Client
	dialer *websocket.Dialer
	log    *slog.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	room  string
	self  string
	cbs   map[string]func(Response)
	hooks Hooks

	wmu      sync.Mutex    // сериализует запись в websocket
	pingStop chan struct{} // стоп-канал для ping-горутины
	closed   atomic.Bool   // true — соединение закрыли мы сами

	etagMu   sync.Mutex
	etag     string
	lastRoom *gabs.Container
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		log:    logger.With("component", "dubclient"),
		cbs:    make(map[string]func(Response)),
	}
}

// SetHooks заменяет набор хуков. Вызывать до Connect.
func (c *Client) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

func (c *Client) getHooks() Hooks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hooks
}

// Connect открывает сокет, входит в комнату и ждёт подтверждения.
// Повторный вызов при живом соединении закрывает старое.
func (c *Client) Connect(ctx context.Context, room string) error {
	h := c.getHooks()
	if h.OnConnecting != nil {
		h.OnConnecting()
	}

	c.closed.Store(true)
	c.closeConn()

	conn, err := c.dialAndSetup(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.SocketURL, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.room = room
	c.mu.Unlock()
	c.closed.Store(false)

	go c.readLoop(conn)

	ack := make(chan Response, 1)
	err = c.request("join", map[string]any{"room": room}, func(r Response) { ack <- r })
	if err != nil {
		c.abort()
		return fmt.Errorf("join %s: %w", room, err)
	}

	timer := time.NewTimer(joinTimeout)
	defer timer.Stop()
	select {
	case r := <-ack:
		if !r.OK {
			c.abort()
			return fmt.Errorf("join %s: %s", room, r.Err)
		}
		if id := field(r.Data, "user", "_id"); id != "" {
			c.mu.Lock()
			c.self = id
			c.mu.Unlock()
		}
	case <-ctx.Done():
		c.abort()
		return ctx.Err()
	case <-timer.C:
		c.abort()
		return fmt.Errorf("join %s: timeout waiting for ack", room)
	}

	c.log.Info("joined room", "room", room, "self", c.Self())
	if h.OnConnected != nil {
		h.OnConnected()
	}
	return nil
}

// abort — закрыть соединение без OnDisconnected.
func (c *Client) abort() {
	c.closed.Store(true)
	c.closeConn()
	c.failPendingCallbacks(ErrConnectionLost)
}

// Disconnect закрывает соединение по нашей инициативе. OnDisconnected не
// вызывается: это не обрыв.
func (c *Client) Disconnect() {
	c.abort()
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed.Load()
}

// Self — id пользователя бота из подтверждения входа.
func (c *Client) Self() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self
}

func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// request отправляет запрос. Если cb != nil, он будет вызван по ответу с тем
// же id либо с ошибкой при обрыве соединения.
func (c *Client) request(action string, params map[string]any, cb func(Response)) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || c.closed.Load() {
		return ErrNotConnected
	}

	id := uuid.NewString()
	msg := gabs.New()
	if _, err := msg.Set(id, "id"); err != nil {
		return err
	}
	if _, err := msg.Set(action, "action"); err != nil {
		return err
	}
	if params != nil {
		if _, err := msg.Set(params, "params"); err != nil {
			return err
		}
	}

	if cb != nil {
		c.mu.Lock()
		c.cbs[id] = cb
		c.mu.Unlock()
	}

	// запись строго через один мьютекс + write-deadline
	c.wmu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	werr := conn.WriteMessage(websocket.TextMessage, msg.Bytes())
	c.wmu.Unlock()

	if werr != nil {
		// сеть упала между подготовкой и записью — подчищаем cb
		c.mu.Lock()
		delete(c.cbs, id)
		c.mu.Unlock()
		return werr
	}
	c.log.Debug("request sent", "action", action, "id", id)
	return nil
}

// пометить все ожидающие колбэки ошибкой при обрыве/закрытии
func (c *Client) failPendingCallbacks(err error) {
	c.mu.Lock()
	pending := c.cbs
	c.cbs = make(map[string]func(Response))
	c.mu.Unlock()

	for _, cb := range pending {
		cb(Response{Err: err.Error()})
	}
}
