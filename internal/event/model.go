package event

import (
	"slices"
	"time"
)

// Role — упорядоченная лестница прав. Важен только порядок.
type Role uint8

const (
	RoleNone Role = iota
	RoleResidentDJ
	RoleVIP
	RoleMod
	RoleCoOwner
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleResidentDJ:
		return "resident-dj"
	case RoleVIP:
		return "vip"
	case RoleMod:
		return "mod"
	case RoleCoOwner:
		return "co-owner"
	case RoleOwner:
		return "owner"
	default:
		return "none"
	}
}

// AtLeast — r не ниже min.
func (r Role) AtLeast(min Role) bool { return r >= min }

// MarshalText — в JSON роль пишется именем.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

type ChatType uint8

const (
	ChatMessageType ChatType = iota
	ChatCommand
	ChatEmote
)

func (t ChatType) String() string {
	switch t {
	case ChatCommand:
		return "command"
	case ChatEmote:
		return "emote"
	default:
		return "message"
	}
}

func (t ChatType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Media — трек. ContentID — ключ во внешнем каталоге, между проигрываниями
// не уникален.
type Media struct {
	ContentID string        `json:"contentID"`
	Duration  time.Duration `json:"duration"`
	FullTitle string        `json:"fullTitle"`
}

type User struct {
	ID          string    `json:"userID"`
	Username    string    `json:"username"`
	Role        Role      `json:"role"`
	JoinDate    time.Time `json:"joinDate"`
	SongsPlayed int       `json:"numberOfSongsPlayed"`
	Dubs        int       `json:"dubs"`
	Muted       bool      `json:"muted"`
	// Vote и Grabbed — отметки пользователя на текущем треке, приходят
	// только в снимке комнаты.
	Vote    int  `json:"-"`
	Grabbed bool `json:"-"`
}

type Votes struct {
	Grabs []string `json:"grabs"`
	Mehs  []string `json:"mehs"`
	Woots []string `json:"woots"`
}

func (v Votes) Clone() Votes {
	return Votes{
		Grabs: slices.Clone(v.Grabs),
		Mehs:  slices.Clone(v.Mehs),
		Woots: slices.Clone(v.Woots),
	}
}

// Play — запись истории проигрываний.
type Play struct {
	Media     Media     `json:"media"`
	StartDate time.Time `json:"startDate"`
	DJ        User      `json:"user"`
	Votes     Votes     `json:"votes"`
}

func (p Play) Clone() Play {
	p.Votes = p.Votes.Clone()
	return p
}

// ChatMessage — запись истории чата. Удаление помечается на месте.
type ChatMessage struct {
	ChatID       string    `json:"chatID"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
	Type         ChatType  `json:"type"`
	UserID       string    `json:"userID"`
	Username     string    `json:"username"`
	WasUserMuted bool      `json:"wasUserMuted"`
	IsDeleted    bool      `json:"isDeleted"`
	DeletedBy    string    `json:"deletedByUserID,omitempty"`
	DeletionTime time.Time `json:"deletionTime,omitzero"`
}

// QueueEntry — место в очереди диджеев.
type QueueEntry struct {
	Media Media `json:"media"`
	User  User  `json:"user"`
}
