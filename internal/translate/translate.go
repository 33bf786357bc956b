// Package translate переводит события вендора (сырые JSON-пейлоады в gabs)
// во внутреннюю модель event. Состояния комнаты нет: каждая функция берёт один
// пейлоад и возвращает одно событие либо nil. nil значит «кривое/неполное
// событие, молча выбросить» — это не ошибка.
package translate

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/EgorLis/dubbot/internal/clock"
	"github.com/EgorLis/dubbot/internal/event"
)

// Типы событий вендора.
const (
	TypeAdvance       = "room_playlist-update"
	TypeChat          = "chat-message"
	TypeChatDelete    = "delete-chat-message"
	TypeVote          = "room_playlist-dub"
	TypeGrab          = "room_playlist-queue-update-grabs"
	TypeUserJoin      = "user-join"
	TypeUserLeave     = "user-leave"
	TypeUserUpdate    = "user-update"
	TypeUserBan       = "user-ban"
	TypeUserMute      = "user-mute"
	TypeUserUnmute    = "user-unmute"
	TypeUserKick      = "user-kick"
	TypeChatSkip      = "chat-skip"
	TypeQueueUpdate   = "room_playlist-queue-update"
	TypeQueueDubState = "room_playlist-queue-update-dub"
)

// Вендорные метки голоса.
const (
	voteUp   = "updub"
	voteDown = "downdub"
)

type Translator struct {
	clock clock.Clock
	log   *slog.Logger

	mu      sync.Mutex
	unknown map[string]bool
}

func New(clk clock.Clock, logger *slog.Logger) *Translator {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{clock: clk, log: logger, unknown: make(map[string]bool)}
}

// Translate выбирает перевод по типу вендорного события. Неизвестный тип
// даёт nil.
func (t *Translator) Translate(vendorType string, p *gabs.Container) event.Event {
	// каждая ветка проверяет nil отдельно: типизированный nil в интерфейсе
	// не равен nil
	switch vendorType {
	case TypeAdvance:
		if ev := t.Advance(p); ev != nil {
			return ev
		}
	case TypeChat:
		if ev := t.Chat(p); ev != nil {
			return ev
		}
	case TypeChatDelete:
		if ev := t.ChatDelete(p); ev != nil {
			return ev
		}
	case TypeVote:
		if ev := t.Vote(p); ev != nil {
			return ev
		}
	case TypeGrab:
		if ev := t.Grab(p); ev != nil {
			return ev
		}
	case TypeUserJoin:
		if u, ok := userField(p); ok {
			return &event.UserJoin{User: u}
		}
	case TypeUserLeave:
		if u, ok := userField(p); ok {
			return &event.UserLeave{User: u}
		}
	case TypeUserUpdate:
		if u, ok := userField(p); ok {
			return &event.UserUpdate{User: u}
		}
	case TypeUserBan:
		if ev := t.Ban(p); ev != nil {
			return ev
		}
	case TypeUserMute, TypeUserUnmute:
		if ev := t.Mute(p, vendorType == TypeUserMute); ev != nil {
			return ev
		}
	case TypeUserKick:
		if ev := t.Kick(p); ev != nil {
			return ev
		}
	case TypeChatSkip:
		if ev := t.Skip(p); ev != nil {
			return ev
		}
	case TypeQueueUpdate, TypeQueueDubState:
		if ev := t.WaitList(p); ev != nil {
			return ev
		}
	default:
		t.unhandled(vendorType)
	}
	return nil
}

// unhandled предупреждает о незнакомом типе один раз, повторы только в debug.
func (t *Translator) unhandled(vendorType string) {
	t.mu.Lock()
	seen := t.unknown[vendorType]
	t.unknown[vendorType] = true
	t.mu.Unlock()
	if seen {
		t.log.Debug("unhandled vendor event", "type", vendorType)
		return
	}
	t.log.Warn("unhandled vendor event", "type", vendorType)
}

// Advance: нужны user и media. startTime вендора берём, только если он
// положительный, иначе — локальное время. lastPlay прикладываем, только
// если в нём есть и user, и media, и score.
func (t *Translator) Advance(p *gabs.Container) *event.Advance {
	dj, ok := userField(p)
	if !ok {
		return nil
	}
	media, ok := mediaField(p)
	if !ok {
		return nil
	}

	now := t.clock.Now()
	ev := &event.Advance{
		IncomingDJ:     dj,
		Media:          media,
		StartDate:      now,
		LocalStartDate: now,
	}
	if ms, ok := num(p, "startTime"); ok && ms > 0 {
		ev.StartDate = time.UnixMilli(int64(ms))
	}

	if last := object(p, "lastPlay"); last != nil {
		lastDJ, okUser := userField(last)
		lastMedia, okMedia := mediaField(last)
		score := object(last, "score")
		if okUser && okMedia && score != nil {
			ev.PreviousPlay = &event.PreviousPlay{
				DJ:    lastDJ,
				Media: lastMedia,
				Score: event.Score{
					Woots: integer(score, "updubs"),
					Mehs:  integer(score, "downdubs"),
					Grabs: integer(score, "grabs"),
				},
			}
		}
	}
	return ev
}

// Chat классифицирует сообщение по содержимому: "!" — команда,
// "/me " — эмоут, остальное — обычное сообщение.
func (t *Translator) Chat(p *gabs.Container) *event.Chat {
	u, ok := userField(p)
	if !ok {
		return nil
	}
	msg := child(p, "message")
	if msg == nil {
		return nil
	}
	text, ok := msg.Data().(string)
	if !ok {
		return nil
	}

	ev := &event.Chat{
		ChatID:    chatID(p),
		Message:   text,
		Type:      event.ChatMessageType,
		UserID:    u.ID,
		Username:  u.Username,
		UserRole:  u.Role,
		Timestamp: t.clock.Now(),
	}
	if ms, ok := num(p, "time"); ok && ms > 0 {
		ev.Timestamp = time.UnixMilli(int64(ms))
	}

	if variant := str(p, "type"); variant != "" && variant != TypeChat {
		t.log.Warn("unknown chat variant, treating as message", "variant", variant, "chat_id", ev.ChatID)
		return ev
	}

	switch {
	case strings.HasPrefix(text, "!"):
		fields := strings.Fields(text)
		ev.Type = event.ChatCommand
		if len(fields) > 0 {
			ev.Command = strings.TrimPrefix(fields[0], "!")
			ev.Args = fields[1:]
		}
	case len(text) > 4 && strings.HasPrefix(text, "/me "):
		ev.Type = event.ChatEmote
		ev.Message = text[len("/me "):]
	}
	return ev
}

// ChatDelete переводит только само удалённое сообщение и модератора.
// Каскад по соседним сообщениям делает трекер: у переводчика нет истории.
func (t *Translator) ChatDelete(p *gabs.Container) *event.ChatDelete {
	id := chatID(p)
	if id == "" {
		return nil
	}
	mod, _ := userField(p)
	return &event.ChatDelete{ChatID: id, Moderator: mod}
}

func (t *Translator) Vote(p *gabs.Container) *event.Vote {
	u, ok := userField(p)
	if !ok {
		return nil
	}
	ev := &event.Vote{User: u}
	switch kind := str(p, "dubtype"); kind {
	case voteUp:
		ev.Vote = 1
	case voteDown:
		ev.Vote = -1
	default:
		t.log.Warn("unknown vote kind, dropping event", "dubtype", kind, "user_id", u.ID)
		return nil
	}
	return ev
}

func (t *Translator) Grab(p *gabs.Container) *event.Grab {
	id := str(p, "user", "_id")
	if id == "" {
		id = str(p, "user", "id")
	}
	if id == "" {
		id = str(p, "userid")
	}
	if id == "" {
		return nil
	}
	return &event.Grab{UserID: id}
}

// Ban: длительность (минуты) приходит то числом, то строкой.
func (t *Translator) Ban(p *gabs.Container) *event.ModBan {
	u, ok := userField(p)
	if !ok {
		return nil
	}
	mod, _ := userObject(object(p, "mod"))
	minutes, _ := num(p, "time")
	return &event.ModBan{
		User:      u,
		Moderator: mod,
		Duration:  time.Duration(minutes * float64(time.Minute)),
	}
}

func (t *Translator) Mute(p *gabs.Container, muted bool) *event.ModMute {
	u, ok := userField(p)
	if !ok {
		return nil
	}
	mod, _ := userObject(object(p, "mod"))
	return &event.ModMute{User: u, Moderator: mod, Muted: muted}
}

func (t *Translator) Kick(p *gabs.Container) *event.ModKick {
	u, ok := userField(p)
	if !ok {
		return nil
	}
	mod, _ := userObject(object(p, "mod"))
	return &event.ModKick{User: u, Moderator: mod, Message: str(p, "kickmessage")}
}

func (t *Translator) Skip(p *gabs.Container) *event.ModSkip {
	if mod, ok := userField(p); ok {
		return &event.ModSkip{Moderator: mod}
	}
	if name := str(p, "username"); name != "" {
		return &event.ModSkip{Moderator: event.User{Username: name}}
	}
	return nil
}

func (t *Translator) WaitList(p *gabs.Container) *event.WaitListUpdate {
	if child(p, "queue") == nil {
		return nil
	}
	return &event.WaitListUpdate{Queue: queue(list(p, "queue"))}
}

// RoomState переводит снимок комнаты для инициализации трекера.
// Кривой снимок (не объект) даёт nil.
func (t *Translator) RoomState(p *gabs.Container) *event.RoomState {
	if p == nil {
		return nil
	}
	if _, ok := p.Data().(map[string]interface{}); !ok {
		return nil
	}
	st := &event.RoomState{}
	for _, item := range list(p, "users") {
		if u, ok := userObject(item); ok {
			st.Users = append(st.Users, u)
		}
	}
	if dj, ok := userObject(object(p, "dj")); ok {
		st.DJ = &dj
	}
	if m, ok := mediaObject(object(p, "media")); ok {
		st.Media = &m
	}
	if secs, ok := num(p, "elapsed"); ok && secs > 0 {
		st.Elapsed = time.Duration(secs * float64(time.Second))
	}
	st.WaitList = queue(list(p, "queue"))
	return st
}

func queue(items []*gabs.Container) []event.QueueEntry {
	out := make([]event.QueueEntry, 0, len(items))
	for _, item := range items {
		u, ok := userField(item)
		if !ok {
			continue
		}
		m, _ := mediaField(item)
		out = append(out, event.QueueEntry{Media: m, User: u})
	}
	return out
}

func chatID(p *gabs.Container) string {
	if id := str(p, "chatid"); id != "" {
		return id
	}
	return str(p, "id")
}
