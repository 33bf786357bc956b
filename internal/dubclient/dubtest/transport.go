// Package dubtest — поддельный транспорт для тестов бота и плагинов.
// Запоминает вызовы действий, а завершает их тест через Complete.
package dubtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/EgorLis/dubbot/internal/dubclient"
)

// Call — одно исходящее действие.
type Call struct {
	Action string
	Args   []any

	done func(error)
}

type Transport struct {
	mu sync.Mutex

	hooks     dubclient.Hooks
	connected bool
	connects  int
	calls     []*Call

	// SelfID — id бота, который вернёт Self.
	SelfID string
	// State — JSON снимка комнаты для RoomState.
	State string
	// FailConnects — сколько следующих Connect завершатся ошибкой.
	FailConnects int
	// FailWith — если не nil, действия отказывают синхронно с этой ошибкой.
	FailWith error
	// BeforeRoomState, если задан, вызывается в начале каждого RoomState.
	BeforeRoomState func()
}

func New(selfID, state string) *Transport {
	return &Transport{SelfID: selfID, State: state}
}

func (t *Transport) SetHooks(h dubclient.Hooks) {
	t.mu.Lock()
	t.hooks = h
	t.mu.Unlock()
}

func (t *Transport) Connect(ctx context.Context, room string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	t.connects++
	if t.FailConnects > 0 {
		t.FailConnects--
		t.mu.Unlock()
		return errors.New("dubtest: connect refused")
	}
	t.connected = true
	h := t.hooks
	t.mu.Unlock()

	if h.OnConnected != nil {
		h.OnConnected()
	}
	return nil
}

func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Connects — сколько раз вызывали Connect, включая неудачные.
func (t *Transport) Connects() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

func (t *Transport) RoomState(ctx context.Context, room string) (*gabs.Container, error) {
	t.mu.Lock()
	state := t.State
	before := t.BeforeRoomState
	t.mu.Unlock()
	if before != nil {
		before()
	}
	if state == "" {
		state = `{"users":[],"queue":[]}`
	}
	return gabs.ParseJSON([]byte(state))
}

func (t *Transport) Self() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.SelfID
}

// Emit отдаёт событие вендора так, будто оно пришло из сокета.
func (t *Transport) Emit(typ, payload string) error {
	data, err := gabs.ParseJSON([]byte(payload))
	if err != nil {
		return fmt.Errorf("dubtest: %s payload: %w", typ, err)
	}
	t.mu.Lock()
	h := t.hooks
	t.mu.Unlock()
	if h.OnEvent != nil {
		h.OnEvent(dubclient.RawEvent{Type: typ, Data: data, ReceivedAt: time.Now()})
	}
	return nil
}

// Drop имитирует обрыв, которого мы не просили.
func (t *Transport) Drop() {
	t.mu.Lock()
	t.connected = false
	h := t.hooks
	t.mu.Unlock()
	if h.OnDisconnected != nil {
		h.OnDisconnected()
	}
}

// Calls — копия списка действий в порядке вызова.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Call, 0, len(t.calls))
	for _, c := range t.calls {
		out = append(out, Call{Action: c.Action, Args: c.Args})
	}
	return out
}

// Complete завершает i-е действие (отрицательный индекс — с конца).
func (t *Transport) Complete(i int, err error) error {
	t.mu.Lock()
	if i < 0 {
		i += len(t.calls)
	}
	if i < 0 || i >= len(t.calls) {
		t.mu.Unlock()
		return fmt.Errorf("dubtest: no call #%d", i)
	}
	c := t.calls[i]
	done := c.done
	c.done = nil
	t.mu.Unlock()

	if done == nil {
		return fmt.Errorf("dubtest: call #%d (%s) has no pending callback", i, c.Action)
	}
	done(err)
	return nil
}

func (t *Transport) record(action string, done func(error), args ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailWith != nil {
		return t.FailWith
	}
	if !t.connected {
		return dubclient.ErrNotConnected
	}
	t.calls = append(t.calls, &Call{Action: action, Args: args, done: done})
	return nil
}

func (t *Transport) Skip(done func(error)) error    { return t.record("skip", done) }
func (t *Transport) Updub(done func(error)) error   { return t.record("updub", done) }
func (t *Transport) Downdub(done func(error)) error { return t.record("downdub", done) }
func (t *Transport) Grab(done func(error)) error    { return t.record("grab", done) }

func (t *Transport) JoinQueue(done func(error)) error  { return t.record("queue-join", done) }
func (t *Transport) LeaveQueue(done func(error)) error { return t.record("queue-leave", done) }

func (t *Transport) MoveDJ(userID string, position int, done func(error)) error {
	return t.record("queue-move", done, userID, position)
}

func (t *Transport) SendChat(message string, done func(error)) error {
	return t.record("chat", done, message)
}

func (t *Transport) DeleteChat(chatID string, done func(error)) error {
	return t.record("chat-delete", done, chatID)
}
