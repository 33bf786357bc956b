// Package recorder пишет сырые события вендора в файл и читает их обратно.
//
// Формат: поток zstd, внутри — protobuf Struct-записи с префиксом длины
// (protodelim). Поля записи: session, type, receivedAt (unix ms), data.
// Записи пишутся из цикла бота через Tap, поэтому схема вендора
// сохраняется как есть, до перевода.
package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/EgorLis/dubbot/internal/dubclient"
)

var ErrClosed = errors.New("recorder: closed")

// Entry — одна запись файла.
type Entry struct {
	Session    string
	Type       string
	ReceivedAt time.Time
	Data       *gabs.Container
}

type Recorder struct {
	mu      sync.Mutex
	f       *os.File
	zw      *zstd.Encoder
	bw      *bufio.Writer
	session string
	count   int
	log     *slog.Logger
}

// Create открывает файл на дозапись. Каждый запуск — новая сессия со своим
// uuid; zstd-кадры разных сессий в одном файле читаются подряд.
func Create(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: %w", err)
	}
	r := &Recorder{
		f:       f,
		zw:      zw,
		bw:      bufio.NewWriter(zw),
		session: uuid.NewString(),
		log:     logger,
	}
	r.log.Info("recording events", "file", path, "session", r.session)
	return r, nil
}

func (r *Recorder) Session() string { return r.session }

// Record пишет событие. Ошибки только логируются: запись не должна
// мешать боту.
func (r *Recorder) Record(ev dubclient.RawEvent) {
	if err := r.write(ev); err != nil {
		r.log.Warn("record failed", "type", ev.Type, "err", err)
	}
}

func (r *Recorder) write(ev dubclient.RawEvent) error {
	var data any
	if ev.Data != nil {
		data = ev.Data.Data()
	}
	rec, err := structpb.NewStruct(map[string]any{
		"session":    r.session,
		"type":       ev.Type,
		"receivedAt": float64(ev.ReceivedAt.UnixMilli()),
		"data":       data,
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bw == nil {
		return ErrClosed
	}
	if _, err := protodelim.MarshalTo(r.bw, rec); err != nil {
		return err
	}
	r.count++
	return nil
}

// Close дописывает буферы и закрывает кадр zstd.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bw == nil {
		return nil
	}
	err := errors.Join(r.bw.Flush(), r.zw.Close(), r.f.Close())
	r.bw = nil
	r.log.Info("recording closed", "session", r.session, "events", r.count)
	return err
}

// Replay читает файл и отдаёт записи в fn по порядку. Ошибка fn
// останавливает чтение и возвращается как есть.
func Replay(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	for n := 0; ; n++ {
		var rec structpb.Struct
		if err := protodelim.UnmarshalFrom(br, &rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("recorder: record %d: %w", n, err)
		}
		e, err := entry(&rec)
		if err != nil {
			return fmt.Errorf("recorder: record %d: %w", n, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

func entry(rec *structpb.Struct) (Entry, error) {
	m := rec.AsMap()
	e := Entry{}
	e.Session, _ = m["session"].(string)
	e.Type, _ = m["type"].(string)
	if e.Type == "" {
		return Entry{}, errors.New("no event type")
	}
	if ms, ok := m["receivedAt"].(float64); ok {
		e.ReceivedAt = time.UnixMilli(int64(ms))
	}
	data, err := gabs.Consume(m["data"])
	if err != nil {
		return Entry{}, err
	}
	e.Data = data
	return e, nil
}
