package bot

import (
	"runtime/debug"

	"github.com/EgorLis/dubbot/internal/dubclient"
	"github.com/EgorLis/dubbot/internal/event"
)

// On добавляет слушателя события. Неизвестное имя или nil-обработчик не
// регистрируются, ошибка только в логе. Вызывать до Run или из цикла.
func (b *Bot) On(name event.Name, h Handler) {
	if !name.Valid() {
		b.log.Error("listener for unknown event ignored", "event", int(name))
		return
	}
	if h == nil {
		b.log.Error("nil listener ignored", "event", name.String())
		return
	}
	b.handlers[name] = append(b.handlers[name], h)
}

// Tap получает каждое сырое событие вендора до перевода (запись, отладка).
func (b *Bot) Tap(fn func(dubclient.RawEvent)) {
	if fn != nil {
		b.taps = append(b.taps, fn)
	}
}

func (b *Bot) handleRaw(raw dubclient.RawEvent) {
	if b.opts.LogAllEvents {
		payload := "null"
		if raw.Data != nil {
			payload = raw.Data.String()
		}
		b.log.Info("vendor event", "type", raw.Type, "payload", payload)
	}
	for _, tap := range b.taps {
		tap(raw)
	}

	ev := b.translator.Translate(raw.Type, raw.Data)
	if ev == nil {
		return
	}
	b.deliver(ev)
}

// deliver: трекер всегда первый, затем слушатели в порядке регистрации.
func (b *Bot) deliver(ev event.Event) {
	b.tracker.Apply(ev)

	// вендор может не прислать роль автора; берём её из трекера
	if c, ok := ev.(*event.Chat); ok && c.UserRole == event.RoleNone {
		if u, ok := b.tracker.User(c.UserID); ok {
			c.UserRole = u.Role
		}
	}

	for _, h := range b.handlers[ev.Name()] {
		b.call(h, ev)
	}
}

// call изолирует панику одного слушателя: остальные всё равно вызываются.
func (b *Bot) call(h Handler, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("listener panicked",
				"event", ev.Name().String(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(b.state, ev)
}
