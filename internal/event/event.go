// Package event — внутренняя модель событий комнаты. Всё, что приходит от
// вендора (см. dubclient), переводится пакетом translate в типы отсюда;
// трекер состояния (room), бот и плагины работают только с ними.
package event

import "time"

// Name — закрытый список внутренних имён событий. Единственный источник
// правды о том, на что можно подписаться.
type Name uint8

const (
	NameUnknown Name = iota
	NameAdvance
	NameChat
	NameChatDelete
	NameVote
	NameGrab
	NameUserJoin
	NameUserLeave
	NameUserUpdate
	NameModBan
	NameModMute
	NameModKick
	NameModSkip
	NameWaitListUpdate

	nameCount
)

var names = [...]string{
	NameUnknown:        "unknown",
	NameAdvance:        "advance",
	NameChat:           "chat",
	NameChatDelete:     "chatDelete",
	NameVote:           "vote",
	NameGrab:           "grab",
	NameUserJoin:       "userJoin",
	NameUserLeave:      "userLeave",
	NameUserUpdate:     "userUpdate",
	NameModBan:         "modBan",
	NameModMute:        "modMute",
	NameModKick:        "modKick",
	NameModSkip:        "modSkip",
	NameWaitListUpdate: "waitListUpdate",
}

func (n Name) String() string {
	if n < nameCount {
		return names[n]
	}
	return "unknown"
}

// Valid сообщает, можно ли на это имя подписаться.
func (n Name) Valid() bool {
	return n > NameUnknown && n < nameCount
}

// ParseName ищет имя по строке (как в конфиге/логах).
func ParseName(s string) (Name, bool) {
	for n := NameAdvance; n < nameCount; n++ {
		if names[n] == s {
			return n, true
		}
	}
	return NameUnknown, false
}

// Names возвращает все валидные имена в порядке объявления.
func Names() []Name {
	out := make([]Name, 0, nameCount-1)
	for n := NameAdvance; n < nameCount; n++ {
		out = append(out, n)
	}
	return out
}

// Event — любое переведённое событие.
type Event interface {
	Name() Name
}

// Advance — начался новый трек.
type Advance struct {
	IncomingDJ User
	Media      Media
	// StartDate — время старта по часам вендора, либо локальное, если вендор
	// прислал 0/ничего.
	StartDate      time.Time
	LocalStartDate time.Time
	PreviousPlay   *PreviousPlay
}

// PreviousPlay — итог предыдущего трека; есть только если вендор прислал
// его целиком (dj, media и score).
type PreviousPlay struct {
	DJ    User
	Media Media
	Score Score
}

type Score struct {
	Woots int
	Mehs  int
	Grabs int
}

// Chat — сообщение в чате.
type Chat struct {
	ChatID    string
	Message   string
	Type      ChatType
	UserID    string
	Username  string
	UserRole  Role
	Timestamp time.Time
	// Command и Args заполнены только для Type == ChatCommand.
	Command string
	Args    []string
}

// ChatDelete — модератор удалил сообщение. DeletedMessages заполняет трекер:
// туда попадают все сообщения, помеченные удалёнными этим событием.
type ChatDelete struct {
	ChatID          string
	Moderator       User
	DeletedMessages []ChatMessage
}

// Vote — woot (+1) или meh (-1).
type Vote struct {
	User User
	Vote int
}

type Grab struct {
	UserID string
}

type UserJoin struct {
	User User
}

type UserLeave struct {
	User User
}

type UserUpdate struct {
	User User
}

type ModBan struct {
	User      User
	Moderator User
	Duration  time.Duration
}

type ModMute struct {
	User      User
	Moderator User
	Muted     bool
}

type ModKick struct {
	User      User
	Moderator User
	Message   string
}

type ModSkip struct {
	Moderator User
}

// WaitListUpdate несёт очередь целиком, без дельт.
type WaitListUpdate struct {
	Queue []QueueEntry
}

func (*Advance) Name() Name        { return NameAdvance }
func (*Chat) Name() Name           { return NameChat }
func (*ChatDelete) Name() Name     { return NameChatDelete }
func (*Vote) Name() Name           { return NameVote }
func (*Grab) Name() Name           { return NameGrab }
func (*UserJoin) Name() Name       { return NameUserJoin }
func (*UserLeave) Name() Name      { return NameUserLeave }
func (*UserUpdate) Name() Name     { return NameUserUpdate }
func (*ModBan) Name() Name         { return NameModBan }
func (*ModMute) Name() Name        { return NameModMute }
func (*ModKick) Name() Name        { return NameModKick }
func (*ModSkip) Name() Name        { return NameModSkip }
func (*WaitListUpdate) Name() Name { return NameWaitListUpdate }

// RoomState — снимок комнаты на момент подключения. DJ и Media равны nil,
// если сейчас ничего не играет.
type RoomState struct {
	Users    []User
	DJ       *User
	Media    *Media
	Elapsed  time.Duration
	WaitList []QueueEntry
}
