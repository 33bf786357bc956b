package recorder

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/EgorLis/dubbot/internal/dubclient"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func raw(t *testing.T, typ, payload string, at time.Time) dubclient.RawEvent {
	t.Helper()
	p, err := gabs.ParseJSON([]byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	return dubclient.RawEvent{Type: typ, Data: p, ReceivedAt: at}
}

func readAll(t *testing.T, path string) []Entry {
	t.Helper()
	var out []Entry
	if err := Replay(path, func(e Entry) error {
		out = append(out, e)
		return nil
	}); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return out
}

func TestRecordAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.rec")
	at := time.UnixMilli(1700000000123)

	r, err := Create(path, quiet())
	if err != nil {
		t.Fatal(err)
	}
	r.Record(raw(t, "chat-message", `{"chatid":"c1","message":"hi","user":{"_id":"u1","username":"bob"}}`, at))
	r.Record(raw(t, "room_playlist-queue-update", `{"queue":[{"user":{"_id":"u1"}},{"user":{"_id":"u2"}}]}`, at.Add(time.Second)))
	r.Record(dubclient.RawEvent{Type: "user-leave", ReceivedAt: at})
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readAll(t, path)
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Type != "chat-message" || got[0].Session != r.Session() || !got[0].ReceivedAt.Equal(at) {
		t.Errorf("entry 0 = %+v", got[0])
	}
	if s, _ := got[0].Data.Path("user.username").Data().(string); s != "bob" {
		t.Errorf("user.username = %v", got[0].Data.Path("user.username").Data())
	}
	if n, _ := got[1].Data.ArrayCount("queue"); n != 2 {
		t.Errorf("queue length = %d", n)
	}
	if got[2].Data == nil || got[2].Data.Data() != nil {
		t.Errorf("entry without data = %+v", got[2].Data)
	}
}

func TestSessionsAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.rec")
	var sessions []string
	for i := 0; i < 2; i++ {
		r, err := Create(path, quiet())
		if err != nil {
			t.Fatal(err)
		}
		r.Record(raw(t, "user-join", `{"user":{"_id":"u1"}}`, time.Now()))
		sessions = append(sessions, r.Session())
		if err := r.Close(); err != nil {
			t.Fatal(err)
		}
	}
	if sessions[0] == sessions[1] {
		t.Fatal("sessions share an id")
	}

	got := readAll(t, path)
	if len(got) != 2 || got[0].Session != sessions[0] || got[1].Session != sessions[1] {
		t.Errorf("entries = %+v", got)
	}
}

func TestRecordAfterClose(t *testing.T) {
	r, err := Create(filepath.Join(t.TempDir(), "events.rec"), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := r.write(dubclient.RawEvent{Type: "x"}); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close = %v", err)
	}
}

func TestReplayStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.rec")
	r, err := Create(path, quiet())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		r.Record(raw(t, "user-join", `{}`, time.Now()))
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	stop := errors.New("stop")
	calls := 0
	err = Replay(path, func(Entry) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestReplayBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.rec")
	if err := os.WriteFile(path, []byte("not zstd at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Replay(path, func(Entry) error { return nil }); err == nil {
		t.Error("no error for garbage file")
	}
	if err := Replay(filepath.Join(t.TempDir(), "missing"), func(Entry) error { return nil }); err == nil {
		t.Error("no error for missing file")
	}
}
