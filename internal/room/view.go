package room

import (
	"slices"
	"strings"

	"github.com/EgorLis/dubbot/internal/event"
)

var _ View = (*Tracker)(nil)

func (t *Tracker) User(id string) (event.User, bool) {
	if i := t.userIndex(id); i >= 0 {
		return t.users[i], true
	}
	return event.User{}, false
}

// UserByName — без учёта регистра, ведущий "@" игнорируется.
func (t *Tracker) UserByName(username string) (event.User, bool) {
	username = strings.TrimPrefix(username, "@")
	for _, u := range t.users {
		if strings.EqualFold(u.Username, username) {
			return u, true
		}
	}
	return event.User{}, false
}

func (t *Tracker) Users() []event.User {
	return slices.Clone(t.users)
}

func (t *Tracker) CurrentPlay() (event.Play, bool) {
	if p := t.current(); p != nil {
		return p.Clone(), true
	}
	return event.Play{}, false
}

// PlayHistory — от текущего трека к старым.
func (t *Tracker) PlayHistory() []event.Play {
	out := make([]event.Play, 0, len(t.plays))
	for _, p := range t.plays {
		out = append(out, p.Clone())
	}
	return out
}

// PlaysByContentID — все проигрывания трека, свежие первыми.
func (t *Tracker) PlaysByContentID(contentID string) []event.Play {
	var out []event.Play
	for _, p := range t.plays {
		if p.Media.ContentID == contentID {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (t *Tracker) ChatHistory() []event.ChatMessage {
	out := make([]event.ChatMessage, 0, len(t.chat))
	for _, m := range t.chat {
		out = append(out, *m)
	}
	return out
}

func (t *Tracker) Chat(chatID string) (event.ChatMessage, bool) {
	for _, m := range t.chat {
		if m.ChatID == chatID {
			return *m, true
		}
	}
	return event.ChatMessage{}, false
}

func (t *Tracker) WaitList() []event.QueueEntry {
	return slices.Clone(t.waitList)
}

// Snapshot — копия всего состояния, например для статус-эндпоинта.
type Snapshot struct {
	Users       []event.User        `json:"usersInRoom"`
	ChatHistory []event.ChatMessage `json:"chatHistory"`
	PlayHistory []event.Play        `json:"playHistory"`
	WaitList    []event.QueueEntry  `json:"waitList"`
}

func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		Users:       t.Users(),
		ChatHistory: t.ChatHistory(),
		PlayHistory: t.PlayHistory(),
		WaitList:    t.WaitList(),
	}
}
