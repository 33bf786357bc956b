package bot

import (
	"errors"
	"slices"

	"github.com/EgorLis/dubbot/internal/event"
)

// Причины синхронного отказа действия. В колбэк уходит только false,
// причина пишется в лог.
var (
	ErrNoPlay        = errors.New("bot: nothing is playing")
	ErrNoPermission  = errors.New("bot: insufficient role")
	ErrAlreadyDone   = errors.New("bot: already in requested state")
	ErrInvalidTarget = errors.New("bot: invalid target")
)

// Callback — необязательный результат действия. Вызывается в цикле событий.
type Callback func(ok bool)

// act — общий шаблон действий: проверка предусловий, отправка, результат в
// колбэк. Всё, что отказывает синхронно (предусловия, нет соединения),
// сразу даёт false; иначе колбэк вызовет транспорт по завершении.
func (b *Bot) act(name string, cb Callback, check func() error, send func(done func(error)) error) {
	fail := func(err error) {
		b.log.Info("action rejected", "action", name, "reason", err)
		if cb != nil {
			cb(false)
		}
	}
	if check != nil {
		if err := check(); err != nil {
			fail(err)
			return
		}
	}
	err := send(func(err error) {
		b.submit(func() {
			if err != nil {
				b.log.Warn("action failed", "action", name, "err", err)
			} else {
				b.log.Debug("action done", "action", name)
			}
			if cb != nil {
				cb(err == nil)
			}
		})
	})
	if err != nil {
		fail(err)
	}
}

func (b *Bot) self() event.User {
	id := b.tr.Self()
	if u, ok := b.tracker.User(id); ok {
		return u
	}
	return event.User{ID: id}
}

func (b *Bot) needPlay() (event.Play, error) {
	p, ok := b.tracker.CurrentPlay()
	if !ok {
		return event.Play{}, ErrNoPlay
	}
	return p, nil
}

// Skip пропускает текущий трек. Свой трек можно всегда, чужой — с Mod.
func (b *Bot) Skip(cb Callback) {
	b.act("skip", cb, func() error {
		p, err := b.needPlay()
		if err != nil {
			return err
		}
		me := b.self()
		if p.DJ.ID != me.ID && !me.Role.AtLeast(event.RoleMod) {
			return ErrNoPermission
		}
		return nil
	}, b.tr.Skip)
}

func (b *Bot) Woot(cb Callback) {
	b.act("woot", cb, func() error {
		p, err := b.needPlay()
		if err != nil {
			return err
		}
		if slices.Contains(p.Votes.Woots, b.tr.Self()) {
			return ErrAlreadyDone
		}
		return nil
	}, b.tr.Updub)
}

func (b *Bot) Meh(cb Callback) {
	b.act("meh", cb, func() error {
		p, err := b.needPlay()
		if err != nil {
			return err
		}
		if slices.Contains(p.Votes.Mehs, b.tr.Self()) {
			return ErrAlreadyDone
		}
		return nil
	}, b.tr.Downdub)
}

func (b *Bot) Grab(cb Callback) {
	b.act("grab", cb, func() error {
		p, err := b.needPlay()
		if err != nil {
			return err
		}
		if slices.Contains(p.Votes.Grabs, b.tr.Self()) {
			return ErrAlreadyDone
		}
		return nil
	}, b.tr.Grab)
}

func (b *Bot) queuePosition(userID string) int {
	return slices.IndexFunc(b.tracker.WaitList(), func(q event.QueueEntry) bool { return q.User.ID == userID })
}

func (b *Bot) JoinWaitList(cb Callback) {
	b.act("join wait list", cb, func() error {
		me := b.tr.Self()
		if b.queuePosition(me) >= 0 {
			return ErrAlreadyDone
		}
		if p, ok := b.tracker.CurrentPlay(); ok && p.DJ.ID == me {
			return ErrAlreadyDone
		}
		return nil
	}, b.tr.JoinQueue)
}

func (b *Bot) LeaveWaitList(cb Callback) {
	b.act("leave wait list", cb, func() error {
		if b.queuePosition(b.tr.Self()) < 0 {
			return ErrAlreadyDone
		}
		return nil
	}, b.tr.LeaveQueue)
}

// MoveDJ переставляет пользователя в очереди; позиция с нуля, слишком
// большая прижимается к концу. Нужна роль Mod.
func (b *Bot) MoveDJ(userID string, position int, cb Callback) {
	target := position
	b.act("move dj", cb, func() error {
		if !b.self().Role.AtLeast(event.RoleMod) {
			return ErrNoPermission
		}
		cur := b.queuePosition(userID)
		if cur < 0 || position < 0 {
			return ErrInvalidTarget
		}
		if last := len(b.tracker.WaitList()) - 1; target > last {
			target = last
		}
		if cur == target {
			return ErrAlreadyDone
		}
		return nil
	}, func(done func(error)) error {
		return b.tr.MoveDJ(userID, target, done)
	})
}

// DeleteChat удаляет сообщение. Своё можно всегда, чужое — с Mod.
// Сообщения вне истории проверить нельзя, они уходят как есть.
func (b *Bot) DeleteChat(chatID string, cb Callback) {
	b.act("delete chat", cb, func() error {
		if chatID == "" {
			return ErrInvalidTarget
		}
		msg, ok := b.tracker.Chat(chatID)
		if !ok {
			return nil
		}
		if msg.IsDeleted {
			return ErrAlreadyDone
		}
		me := b.self()
		if msg.UserID != me.ID && !me.Role.AtLeast(event.RoleMod) {
			return ErrNoPermission
		}
		return nil
	}, func(done func(error)) error {
		return b.tr.DeleteChat(chatID, done)
	})
}

// SendChat отправляет сообщение по шаблону (см. Format). Результат только
// в логе.
func (b *Bot) SendChat(template string, args ...any) {
	b.SendChatThen(nil, template, args...)
}

// SendChatThen — SendChat с колбэком.
func (b *Bot) SendChatThen(cb Callback, template string, args ...any) {
	msg := Format(template, args...)
	b.act("chat", cb, func() error {
		if msg == "" {
			return ErrInvalidTarget
		}
		return nil
	}, func(done func(error)) error {
		return b.tr.SendChat(msg, done)
	})
}

// Reply отвечает автору сообщения с упоминанием.
func (b *Bot) Reply(chat *event.Chat, template string, args ...any) {
	b.SendChat("@" + chat.Username + " " + Format(template, args...))
}
