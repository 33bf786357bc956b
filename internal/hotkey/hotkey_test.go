package hotkey

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/dubclient/dubtest"
)

func TestDispatch(t *testing.T) {
	var got []Key
	b := Bindings{
		VolumeUp: func() { got = append(got, VolumeUp) },
		Mute:     nil,
	}
	if !b.Dispatch(VolumeUp) {
		t.Error("bound key not handled")
	}
	if b.Dispatch(Mute) || b.Dispatch(VolumeDown) {
		t.Error("unbound key handled")
	}
	if !slices.Equal(got, []Key{VolumeUp}) {
		t.Errorf("got %v", got)
	}
}

func TestForBot(t *testing.T) {
	tr := dubtest.New("bot", `{
		"users": [{"_id": "bot", "username": "dubbot"}, {"_id": "dj1", "username": "alice"}],
		"dj": {"_id": "dj1", "username": "alice"},
		"media": {"fkid": "abc"},
		"queue": []
	}`)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bot.New(tr, bot.Options{Room: "lounge", Logger: logger})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = b.Run(ctx)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	keys := ForBot(b, logger)
	for _, k := range []Key{VolumeUp, VolumeDown, Mute} {
		if !keys.Dispatch(k) {
			t.Errorf("%s not bound", k)
		}
	}

	qctx, qcancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer qcancel()
	if err := b.Query(qctx, func(*bot.State) {}); err != nil {
		t.Fatal(err)
	}
	var actions []string
	for _, c := range tr.Calls() {
		actions = append(actions, c.Action)
	}
	if !slices.Equal(actions, []string{"updub", "downdub", "grab"}) {
		t.Errorf("actions = %v", actions)
	}
}

func TestKeyString(t *testing.T) {
	if VolumeUp.String() != "volume-up" || Key(0).String() != "unknown" {
		t.Errorf("String = %s, %s", VolumeUp, Key(0))
	}
}
