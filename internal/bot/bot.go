package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/EgorLis/dubbot/internal/clock"
	"github.com/EgorLis/dubbot/internal/dubclient"
	"github.com/EgorLis/dubbot/internal/event"
	"github.com/EgorLis/dubbot/internal/room"
	"github.com/EgorLis/dubbot/internal/translate"
)

// Transport — то, что бот использует от клиента вендора.
// *dubclient.Client ему удовлетворяет.
type Transport interface {
	SetHooks(h dubclient.Hooks)
	Connect(ctx context.Context, room string) error
	Disconnect()
	RoomState(ctx context.Context, room string) (*gabs.Container, error)
	Self() string

	Skip(done func(error)) error
	Updub(done func(error)) error
	Downdub(done func(error)) error
	Grab(done func(error)) error
	JoinQueue(done func(error)) error
	LeaveQueue(done func(error)) error
	MoveDJ(userID string, position int, done func(error)) error
	SendChat(message string, done func(error)) error
	DeleteChat(chatID string, done func(error)) error
}

var _ Transport = (*dubclient.Client)(nil)

const queueSize = 1024

type Options struct {
	Room           string
	CaseSensitive  bool // регистр команд; читает роутер
	LogAllEvents   bool
	MaxChatHistory int
	MaxPlayHistory int
	// ReconnectDelay — пауза перед каждой попыткой переподключения, 0 — сразу.
	ReconnectDelay time.Duration

	Logger *slog.Logger
	Clock  clock.Clock
}

// State передаётся каждому обработчику вместо глобального состояния.
// Room только для чтения, менять снимок может лишь трекер.
type State struct {
	Bot     *Bot
	Room    room.View
	Options Options
	Log     *slog.Logger
	Clock   clock.Clock
}

// Handler — слушатель события. Вызывается в цикле событий.
type Handler func(st *State, ev event.Event)

// ChatContext — вызов команды: состояние и само сообщение.
type ChatContext struct {
	*State
	Chat *event.Chat
}

// Reply отвечает автору команды.
func (c *ChatContext) Reply(template string, args ...any) {
	c.Bot.Reply(c.Chat, template, args...)
}

type Bot struct {
	tr    Transport
	opts  Options
	log   *slog.Logger
	clock clock.Clock

	translator *translate.Translator
	tracker    *room.Tracker
	state      *State

	handlers map[event.Name][]Handler
	taps     []func(dubclient.RawEvent)

	ctx          context.Context
	queue        chan func()
	done         chan struct{}
	started      atomic.Bool
	running      atomic.Bool
	stopping     atomic.Bool
	reconnecting atomic.Bool
}

func New(tr Transport, opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	logger := opts.Logger.With("room", opts.Room)

	b := &Bot{
		tr:         tr,
		opts:       opts,
		log:        logger,
		clock:      opts.Clock,
		translator: translate.New(opts.Clock, logger.With("component", "translate")),
		tracker:    room.New(opts.MaxChatHistory, opts.MaxPlayHistory, opts.Clock, logger.With("component", "room")),
		handlers:   make(map[event.Name][]Handler),
		ctx:        context.Background(),
		queue:      make(chan func(), queueSize),
		done:       make(chan struct{}),
	}
	b.state = &State{Bot: b, Room: b.tracker, Options: opts, Log: logger, Clock: opts.Clock}
	return b
}

func (b *Bot) State() *State        { return b.state }
func (b *Bot) Room() room.View      { return b.tracker }
func (b *Bot) Logger() *slog.Logger { return b.log }

// SelfID — id пользователя бота в комнате.
func (b *Bot) SelfID() string { return b.tr.Self() }

// Start подключается к комнате и инициализирует трекер. Connect возвращается
// только после подтверждения входа, поэтому снимок грузим сразу за ним.
// События, пришедшие в промежутке, ждут в очереди и применятся после
// инициализации.
func (b *Bot) Start(ctx context.Context) error {
	if !b.started.CompareAndSwap(false, true) {
		return errors.New("bot: already started")
	}
	b.tr.SetHooks(dubclient.Hooks{
		OnConnecting: func() { b.log.Info("connecting") },
		OnConnected:  func() { b.log.Info("connected", "self", b.tr.Self()) },
		OnEvent: func(ev dubclient.RawEvent) {
			b.submit(func() { b.handleRaw(ev) })
		},
		OnDisconnected: func() { b.submit(b.onDisconnected) },
		OnError:        func(err error) { b.log.Warn("transport error", "err", err) },
	})

	if err := b.tr.Connect(ctx, b.opts.Room); err != nil {
		return fmt.Errorf("connect %s: %w", b.opts.Room, err)
	}
	st, err := b.fetchState(ctx)
	if err != nil {
		b.tr.Disconnect()
		return err
	}
	b.tracker.Init(st)
	return nil
}

func (b *Bot) fetchState(ctx context.Context) (*event.RoomState, error) {
	raw, err := b.tr.RoomState(ctx, b.opts.Room)
	if err != nil {
		return nil, fmt.Errorf("room state: %w", err)
	}
	st := b.translator.RoomState(raw)
	if st == nil {
		return nil, errors.New("room state: malformed payload")
	}
	return st, nil
}

// Run крутит цикл событий до отмены ctx, затем отключается от комнаты.
func (b *Bot) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return errors.New("bot: already running")
	}
	b.ctx = ctx
	defer func() {
		b.stopping.Store(true)
		close(b.done)
		b.tr.Disconnect()
		b.log.Info("bot stopped")
	}()

	b.log.Info("event loop started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-b.queue:
			fn()
		}
	}
}

// submit ставит работу в цикл. false — бот уже остановлен.
func (b *Bot) submit(fn func()) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.queue <- fn:
		return true
	case <-b.done:
		return false
	}
}

// Do выполняет fn в цикле событий. Не ждёт выполнения.
func (b *Bot) Do(fn func(st *State)) bool {
	return b.submit(func() { fn(b.state) })
}

// Query выполняет fn в цикле событий и ждёт завершения.
func (b *Bot) Query(ctx context.Context, fn func(st *State)) error {
	finished := make(chan struct{})
	if !b.submit(func() {
		defer close(finished)
		fn(b.state)
	}) {
		return errors.New("bot: stopped")
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return errors.New("bot: stopped")
	}
}
