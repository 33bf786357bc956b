// Package room — трекер состояния комнаты. Tracker единолично владеет
// снимком (пользователи, история чата, история треков, очередь) и меняет его
// синхронно на каждое событие. Остальные получают только View.
//
// Трекер не потокобезопасен: бот гарантирует, что все вызовы идут из одной
// горутины (event loop), поэтому блокировок тут нет.
package room

import (
	"log/slog"
	"slices"

	"github.com/EgorLis/dubbot/internal/clock"
	"github.com/EgorLis/dubbot/internal/event"
)

const (
	DefaultMaxChatHistory = 512
	DefaultMaxPlayHistory = 32
)

// View — всё, что плагинам можно читать. Методы отдают копии.
type View interface {
	User(id string) (event.User, bool)
	UserByName(username string) (event.User, bool)
	Users() []event.User
	CurrentPlay() (event.Play, bool)
	PlayHistory() []event.Play
	PlaysByContentID(contentID string) []event.Play
	ChatHistory() []event.ChatMessage
	Chat(chatID string) (event.ChatMessage, bool)
	WaitList() []event.QueueEntry
	Snapshot() Snapshot
}

type Tracker struct {
	clock clock.Clock
	log   *slog.Logger

	maxChat int
	maxPlay int

	users    []event.User
	chat     []*event.ChatMessage // свежие в начале
	plays    []*event.Play        // plays[0] — текущий трек
	waitList []event.QueueEntry
}

func New(maxChat, maxPlay int, clk clock.Clock, logger *slog.Logger) *Tracker {
	if maxChat <= 0 {
		maxChat = DefaultMaxChatHistory
	}
	if maxPlay <= 0 {
		maxPlay = DefaultMaxPlayHistory
	}
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		clock:   clk,
		log:     logger,
		maxChat: maxChat,
		maxPlay: maxPlay,
	}
}

// Init заполняет снимок из состояния комнаты на момент подключения.
// Событие старта текущего трека уже прошло до подписки, поэтому текущий
// трек восстанавливаем сами: старт = сейчас - elapsed, голоса — по
// отметкам пользователей.
func (t *Tracker) Init(st *event.RoomState) {
	if st == nil {
		return
	}
	t.users = slices.Clone(st.Users)
	t.waitList = slices.Clone(st.WaitList)

	if st.Media == nil || st.DJ == nil {
		t.log.Info("room state loaded, nothing playing", "users", len(t.users))
		return
	}

	play := &event.Play{
		Media:     *st.Media,
		StartDate: t.clock.Now().Add(-st.Elapsed),
		DJ:        *st.DJ,
		Votes:     emptyVotes(),
	}
	for _, u := range st.Users {
		if u.Grabbed {
			play.Votes.Grabs = append(play.Votes.Grabs, u.ID)
		}
		switch {
		case u.Vote > 0:
			play.Votes.Woots = append(play.Votes.Woots, u.ID)
		case u.Vote < 0:
			play.Votes.Mehs = append(play.Votes.Mehs, u.ID)
		}
	}
	t.pushPlay(play)

	t.log.Info("room state loaded",
		"users", len(t.users),
		"dj", play.DJ.Username,
		"media", play.Media.ContentID,
		"elapsed", st.Elapsed,
	)
}

// Resync сверяет снимок после реконнекта. Пользователи и очередь
// заменяются целиком; текущий трек пересобирается, только если за время
// обрыва он сменился, иначе голоса текущего трека остаются как были.
func (t *Tracker) Resync(st *event.RoomState) {
	if st == nil {
		return
	}
	cur := t.current()
	if cur != nil && st.Media != nil && st.DJ != nil &&
		cur.Media.ContentID == st.Media.ContentID && cur.DJ.ID == st.DJ.ID {
		t.users = slices.Clone(st.Users)
		t.waitList = slices.Clone(st.WaitList)
		return
	}
	t.Init(st)
}

// Apply применяет одно событие. Для ChatDelete дописывает в событие список
// удалённых сообщений.
func (t *Tracker) Apply(ev event.Event) {
	switch e := ev.(type) {
	case *event.Advance:
		t.pushPlay(&event.Play{
			Media:     e.Media,
			StartDate: e.StartDate,
			DJ:        e.IncomingDJ,
			Votes:     emptyVotes(),
		})
	case *event.Grab:
		t.grab(e.UserID)
	case *event.Vote:
		t.vote(e.User.ID, e.Vote)
	case *event.Chat:
		t.pushChat(e)
	case *event.ChatDelete:
		e.DeletedMessages = t.deleteChat(e.ChatID, e.Moderator.ID)
	case *event.UserJoin:
		t.addUser(e.User)
	case *event.UserLeave:
		t.removeUser(e.User.ID)
	case *event.UserUpdate:
		t.updateUser(e.User)
	case *event.ModMute:
		if i := t.userIndex(e.User.ID); i >= 0 {
			t.users[i].Muted = e.Muted
		}
	case *event.WaitListUpdate:
		t.waitList = slices.Clone(e.Queue)
	}
}

func emptyVotes() event.Votes {
	return event.Votes{Grabs: []string{}, Mehs: []string{}, Woots: []string{}}
}

func (t *Tracker) pushPlay(p *event.Play) {
	t.plays = slices.Insert(t.plays, 0, p)
	if len(t.plays) > t.maxPlay {
		clear(t.plays[t.maxPlay:])
		t.plays = t.plays[:t.maxPlay]
	}
}

func (t *Tracker) current() *event.Play {
	if len(t.plays) == 0 {
		return nil
	}
	return t.plays[0]
}

// grab: повторный grab ничего не меняет, "разграбить" нельзя.
func (t *Tracker) grab(userID string) {
	p := t.current()
	if p == nil {
		return
	}
	if !slices.Contains(p.Votes.Grabs, userID) {
		p.Votes.Grabs = append(p.Votes.Grabs, userID)
	}
}

// vote: сначала убираем из обоих списков, потом кладём в нужный —
// пользователь всегда максимум в одном из woots/mehs.
func (t *Tracker) vote(userID string, v int) {
	p := t.current()
	if p == nil {
		return
	}
	p.Votes.Woots = remove(p.Votes.Woots, userID)
	p.Votes.Mehs = remove(p.Votes.Mehs, userID)
	switch {
	case v > 0:
		p.Votes.Woots = append(p.Votes.Woots, userID)
	case v < 0:
		p.Votes.Mehs = append(p.Votes.Mehs, userID)
	}
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

func (t *Tracker) pushChat(e *event.Chat) {
	msg := &event.ChatMessage{
		ChatID:    e.ChatID,
		Message:   e.Message,
		Timestamp: e.Timestamp,
		Type:      e.Type,
		UserID:    e.UserID,
		Username:  e.Username,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = t.clock.Now()
	}
	if i := t.userIndex(e.UserID); i >= 0 {
		msg.WasUserMuted = t.users[i].Muted
	}
	t.chat = slices.Insert(t.chat, 0, msg)
	if len(t.chat) > t.maxChat {
		clear(t.chat[t.maxChat:])
		t.chat = t.chat[:t.maxChat]
	}
}

// deleteChat повторяет поведение вендора: удаление одного сообщения
// удаляет и все идущие сразу за ним сообщения того же автора. Идём от
// найденного сообщения к более новым и останавливаемся на первом сообщении
// другого автора (удалённом или нет) либо на конце истории.
func (t *Tracker) deleteChat(chatID, modID string) []event.ChatMessage {
	start := slices.IndexFunc(t.chat, func(m *event.ChatMessage) bool { return m.ChatID == chatID })
	if start < 0 {
		t.log.Debug("chat delete for unknown message", "chat_id", chatID)
		return nil
	}

	now := t.clock.Now()
	author := t.chat[start].UserID
	var deleted []event.ChatMessage
	mark := func(m *event.ChatMessage) {
		if m.IsDeleted {
			return
		}
		m.IsDeleted = true
		m.DeletedBy = modID
		m.DeletionTime = now
		deleted = append(deleted, *m)
	}

	mark(t.chat[start])
	for i := start - 1; i >= 0; i-- {
		if t.chat[i].UserID != author {
			break
		}
		mark(t.chat[i])
	}
	return deleted
}

func (t *Tracker) userIndex(id string) int {
	return slices.IndexFunc(t.users, func(u event.User) bool { return u.ID == id })
}

// addUser: дубль означает, что где-то выше потеряли leave. Не падаем и не
// дублируем.
func (t *Tracker) addUser(u event.User) {
	if t.userIndex(u.ID) >= 0 {
		t.log.Warn("user joined twice, ignoring", "user_id", u.ID, "username", u.Username)
		return
	}
	t.users = append(t.users, u)
}

func (t *Tracker) removeUser(id string) {
	if i := t.userIndex(id); i >= 0 {
		t.users = slices.Delete(t.users, i, i+1)
	}
}

func (t *Tracker) updateUser(u event.User) {
	i := t.userIndex(u.ID)
	if i < 0 {
		t.log.Debug("update for untracked user", "user_id", u.ID)
		return
	}
	t.users[i] = u
}
