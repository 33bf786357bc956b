package bot

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EgorLis/dubbot/internal/clock"
	"github.com/EgorLis/dubbot/internal/dubclient"
	"github.com/EgorLis/dubbot/internal/dubclient/dubtest"
	"github.com/EgorLis/dubbot/internal/event"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Бот — модератор; играет alice, в очереди bob и carol.
const roomState = `{
	"users": [
		{"_id": "bot", "username": "dubbot", "role": "mod"},
		{"_id": "dj1", "username": "alice", "dub": "updub"},
		{"_id": "u2", "username": "bob", "grab": true},
		{"_id": "u3", "username": "carol"}
	],
	"dj": {"_id": "dj1", "username": "alice"},
	"media": {"fkid": "abc", "name": "Song", "songLength": 180000},
	"elapsed": 30,
	"queue": [
		{"user": {"_id": "u2", "username": "bob"}},
		{"user": {"_id": "u3", "username": "carol"}}
	]
}`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	t    *testing.T
	tr   *dubtest.Transport
	b    *Bot
	clk  *clock.FakeClock
	logs *syncBuffer
}

func newHarness(t *testing.T, state string, opts Options) *harness {
	t.Helper()
	h := &harness{
		t:    t,
		tr:   dubtest.New("bot", state),
		clk:  clock.Fake(epoch),
		logs: &syncBuffer{},
	}
	opts.Room = "lounge"
	opts.Clock = h.clk
	opts.Logger = slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h.b = New(h.tr, opts)
	if err := h.b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h
}

// run запускает цикл; слушателей регистрировать до run.
func (h *harness) run() {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := h.b.Run(ctx); err != nil {
			h.t.Errorf("Run: %v", err)
		}
	}()
	h.t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

// sync ждёт, пока цикл обработает всё, что уже в очереди.
func (h *harness) sync() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := h.b.Query(ctx, func(*State) {}); err != nil {
		h.t.Fatalf("sync: %v", err)
	}
}

func (h *harness) emit(typ, payload string) {
	h.t.Helper()
	if err := h.tr.Emit(typ, payload); err != nil {
		h.t.Fatal(err)
	}
}

// do выполняет fn в цикле и ждёт.
func (h *harness) do(fn func(st *State)) {
	h.t.Helper()
	if err := h.b.Query(context.Background(), fn); err != nil {
		h.t.Fatalf("query: %v", err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func chatPayload(id, userID, username, text string) string {
	return `{"chatid":"` + id + `","message":"` + text + `","user":{"_id":"` + userID + `","username":"` + username + `"}}`
}

func TestStartInitializesTracker(t *testing.T) {
	h := newHarness(t, roomState, Options{})

	play, ok := h.b.Room().CurrentPlay()
	if !ok {
		t.Fatal("no current play after Start")
	}
	if play.Media.ContentID != "abc" || play.DJ.ID != "dj1" {
		t.Errorf("play = %+v", play)
	}
	if want := epoch.Add(-30 * time.Second); !play.StartDate.Equal(want) {
		t.Errorf("StartDate = %v, want %v", play.StartDate, want)
	}
	if !slices.Equal(play.Votes.Woots, []string{"dj1"}) || !slices.Equal(play.Votes.Grabs, []string{"u2"}) {
		t.Errorf("Votes = %+v", play.Votes)
	}
	if n := len(h.b.Room().WaitList()); n != 2 {
		t.Errorf("WaitList = %d entries", n)
	}
	if h.tr.Connects() != 1 {
		t.Errorf("Connects = %d", h.tr.Connects())
	}
}

func TestStartMalformedState(t *testing.T) {
	tr := dubtest.New("bot", `["not","an","object"]`)
	b := New(tr, Options{Room: "lounge", Clock: clock.Fake(epoch)})
	if err := b.Start(context.Background()); err == nil {
		t.Fatal("Start accepted malformed room state")
	}
	if tr.Connected() {
		t.Error("transport left connected after failed Start")
	}
}

func TestStartConnectError(t *testing.T) {
	tr := dubtest.New("bot", roomState)
	tr.FailConnects = 1
	b := New(tr, Options{Room: "lounge"})
	if err := b.Start(context.Background()); err == nil || !strings.Contains(err.Error(), "lounge") {
		t.Fatalf("Start err = %v", err)
	}
}

func TestListenersRunInRegistrationOrder(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	var order []int
	for i := 1; i <= 3; i++ {
		h.b.On(event.NameChat, func(st *State, ev event.Event) { order = append(order, i) })
	}
	h.run()

	h.emit("chat-message", chatPayload("c1", "u2", "bob", "hello"))
	h.sync()

	if !slices.Equal(order, []int{1, 2, 3}) {
		t.Errorf("order = %v", order)
	}
}

func TestChatRoleFromTracker(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	roles := map[string]event.Role{}
	h.b.On(event.NameChat, func(_ *State, ev event.Event) {
		c := ev.(*event.Chat)
		roles[c.ChatID] = c.UserRole
	})
	h.run()

	h.emit("user-update", `{"user": {"_id": "u2", "username": "bob", "role": "mod"}}`)
	h.emit("chat-message", chatPayload("c1", "u2", "bob", "hello"))
	h.emit("chat-message", `{"chatid":"c2","message":"hi","user":{"_id":"u3","username":"carol","role":"vip"}}`)
	h.emit("chat-message", chatPayload("c3", "ghost", "ghost", "boo"))
	h.emit("chat-message", chatPayload("c4", "bot", "dubbot", "beep"))
	h.sync()

	want := map[string]event.Role{
		"c1": event.RoleMod,
		"c2": event.RoleVIP,
		"c3": event.RoleNone,
		"c4": event.RoleMod,
	}
	for id, role := range want {
		if roles[id] != role {
			t.Errorf("%s: role = %v, want %v", id, roles[id], role)
		}
	}
}

func TestOnRejectsUnknownName(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	called := false
	h.b.On(event.Name(200), func(*State, event.Event) { called = true })
	h.b.On(event.NameUnknown, func(*State, event.Event) { called = true })
	h.b.On(event.NameChat, nil)
	h.run()

	h.emit("chat-message", chatPayload("c1", "u2", "bob", "hello"))
	h.sync()

	if called {
		t.Error("listener with unknown name was called")
	}
	logs := h.logs.String()
	if strings.Count(logs, "listener for unknown event ignored") != 2 {
		t.Errorf("missing unknown-name errors in logs:\n%s", logs)
	}
	if !strings.Contains(logs, "nil listener ignored") {
		t.Errorf("missing nil-listener error in logs:\n%s", logs)
	}
	if len(h.b.handlers) != 0 {
		t.Errorf("registrations leaked: %v", h.b.handlers)
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	var after bool
	h.b.On(event.NameChat, func(*State, event.Event) { panic("boom") })
	h.b.On(event.NameChat, func(*State, event.Event) { after = true })
	h.run()

	h.emit("chat-message", chatPayload("c1", "u2", "bob", "hello"))
	h.sync()

	if !after {
		t.Error("listener after the panicking one did not run")
	}
	if logs := h.logs.String(); !strings.Contains(logs, "listener panicked") || !strings.Contains(logs, "event=chat") {
		t.Errorf("panic not logged:\n%s", logs)
	}

	// цикл жив
	after = false
	h.emit("chat-message", chatPayload("c2", "u2", "bob", "again"))
	h.sync()
	if !after {
		t.Error("event loop stopped after panic")
	}
}

func TestTrackerUpdatedBeforeListeners(t *testing.T) {
	h := newHarness(t, roomState, Options{})

	var wootsSeen []string
	h.b.On(event.NameVote, func(st *State, ev event.Event) {
		p, _ := st.Room.CurrentPlay()
		wootsSeen = p.Votes.Woots
	})
	var deleted []string
	h.b.On(event.NameChatDelete, func(st *State, ev event.Event) {
		for _, m := range ev.(*event.ChatDelete).DeletedMessages {
			deleted = append(deleted, m.ChatID)
		}
	})
	h.run()

	h.emit("room_playlist-dub", `{"dubtype":"updub","user":{"_id":"u3","username":"carol"}}`)
	h.emit("chat-message", chatPayload("M1", "u2", "bob", "one"))
	h.emit("chat-message", chatPayload("M2", "u2", "bob", "two"))
	h.emit("chat-message", chatPayload("M3", "u3", "carol", "three"))
	h.emit("delete-chat-message", `{"chatid":"M1","user":{"_id":"bot","username":"dubbot"}}`)
	h.sync()

	if !slices.Contains(wootsSeen, "u3") {
		t.Errorf("listener saw woots %v before the tracker applied the vote", wootsSeen)
	}
	if !slices.Equal(deleted, []string{"M1", "M2"}) {
		t.Errorf("DeletedMessages = %v, want [M1 M2]", deleted)
	}
}

func TestMalformedEventsDropped(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	calls := 0
	h.b.On(event.NameVote, func(*State, event.Event) { calls++ })
	h.run()

	h.emit("room_playlist-dub", `{"dubtype":"sidedub","user":{"_id":"u3"}}`)
	h.emit("no-such-type", `{}`)
	h.sync()

	if calls != 0 {
		t.Errorf("malformed vote delivered %d times", calls)
	}
}

func TestTapAndLogAllEvents(t *testing.T) {
	h := newHarness(t, roomState, Options{LogAllEvents: true})
	var types []string
	h.b.Tap(func(raw dubclient.RawEvent) { types = append(types, raw.Type) })
	h.run()

	h.emit("user-join", `{"user":{"_id":"u9","username":"dave"}}`)
	h.emit("mystery", `{"x":1}`)
	h.sync()

	if !slices.Equal(types, []string{"user-join", "mystery"}) {
		t.Errorf("tapped = %v", types)
	}
	logs := h.logs.String()
	if !strings.Contains(logs, "vendor event") || !strings.Contains(logs, "type=mystery") {
		t.Errorf("raw events not logged:\n%s", logs)
	}
	if _, ok := h.b.Room().User("u9"); !ok {
		t.Error("join not applied")
	}
}

func TestReconnectUnlimitedWithFixedDelay(t *testing.T) {
	h := newHarness(t, roomState, Options{ReconnectDelay: 5 * time.Second})
	h.run()

	h.tr.FailConnects = 2
	h.tr.Drop()

	for want := 2; want <= 4; want++ {
		eventually(t, "reconnect timer", func() bool { return h.clk.Waiters() > 0 })
		if got := h.tr.Connects(); got != want-1 {
			t.Fatalf("connect attempted before delay elapsed: %d", got)
		}
		h.clk.Advance(5 * time.Second)
		eventually(t, "connect attempt", func() bool { return h.tr.Connects() == want })
	}
	eventually(t, "connected", h.tr.Connected)

	// после удачного входа снимок сверяется заново
	eventually(t, "reconnect finished", func() bool { return !h.b.reconnecting.Load() })
	h.sync()
	if strings.Count(h.logs.String(), "reconnect failed") != 2 {
		t.Errorf("expected two failed attempts in logs:\n%s", h.logs.String())
	}
}

func TestReconnectAfterDropDuringStateFetch(t *testing.T) {
	h := newHarness(t, roomState, Options{ReconnectDelay: time.Second})
	h.run()

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	defer func() {
		select {
		case <-release:
		default:
			close(release)
		}
	}()
	h.tr.BeforeRoomState = func() {
		entered <- struct{}{}
		<-release
	}

	h.tr.Drop()
	eventually(t, "reconnect timer", func() bool { return h.clk.Waiters() > 0 })
	h.clk.Advance(time.Second)
	select {
	case <-entered:
	case <-time.After(3 * time.Second):
		t.Fatal("room state not requested after reconnect")
	}

	// второй обрыв, пока снимок ещё грузится
	h.tr.Drop()
	h.sync()
	close(release)

	eventually(t, "second reconnect timer", func() bool { return h.clk.Waiters() > 0 })
	h.clk.Advance(time.Second)
	eventually(t, "third connect", func() bool { return h.tr.Connects() == 3 })
	eventually(t, "connected", h.tr.Connected)
	eventually(t, "reconnect finished", func() bool { return !h.b.reconnecting.Load() })
}

func TestNoReconnectAfterStop(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = h.b.Run(ctx)
	}()
	h.sync()
	cancel()
	<-stopped

	if h.tr.Connected() {
		t.Error("Run did not disconnect on exit")
	}
	h.tr.Drop()
	time.Sleep(20 * time.Millisecond)
	if n := h.tr.Connects(); n != 1 {
		t.Errorf("Connects = %d after stop, want 1", n)
	}
	if err := h.b.Query(context.Background(), func(*State) {}); err == nil {
		t.Error("Query after stop succeeded")
	}
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, roomState, Options{})
	h.run()
	h.sync()
	if err := h.b.Run(context.Background()); err == nil {
		t.Error("second Run accepted")
	}
}
