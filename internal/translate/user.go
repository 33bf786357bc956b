package translate

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/Jeffail/gabs"

	"github.com/EgorLis/dubbot/internal/event"
)

// Роли вендора. Часть комнат отдаёт имена типов, часть — числовые уровни
// старой лестницы (1000..5000); учитываем оба варианта.
var roleNames = map[string]event.Role{
	"resident-dj": event.RoleResidentDJ,
	"residentdj":  event.RoleResidentDJ,
	"resident_dj": event.RoleResidentDJ,
	"dj":          event.RoleVIP,
	"vip":         event.RoleVIP,
	"bouncer":     event.RoleVIP,
	"mod":         event.RoleMod,
	"manager":     event.RoleMod,
	"co-owner":    event.RoleCoOwner,
	"coowner":     event.RoleCoOwner,
	"cohost":      event.RoleCoOwner,
	"owner":       event.RoleOwner,
	"host":        event.RoleOwner,
}

var roleLevels = map[int]event.Role{
	1000: event.RoleResidentDJ,
	2000: event.RoleVIP,
	3000: event.RoleMod,
	4000: event.RoleCoOwner,
	5000: event.RoleOwner,
}

// Role — тотальная функция: всё незнакомое становится RoleNone.
func Role(id any) event.Role {
	switch v := id.(type) {
	case string:
		return roleNames[strings.ToLower(strings.TrimSpace(v))]
	case float64:
		return roleLevels[int(v)]
	case int:
		return roleLevels[v]
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return event.RoleNone
		}
		return roleLevels[int(n)]
	}
	return event.RoleNone
}

func roleOf(p *gabs.Container) event.Role {
	r := child(p, "role")
	if r == nil {
		return event.RoleNone
	}
	// роль может прийти объектом {"type": "mod", ...}
	if _, ok := r.Data().(map[string]interface{}); ok {
		return Role(str(r, "type"))
	}
	return Role(r.Data())
}

// userField достаёт p.user.
func userField(p *gabs.Container) (event.User, bool) {
	return userObject(object(p, "user"))
}

// userObject переименовывает поля вендора в event.User. Без id пользователя
// нет.
func userObject(u *gabs.Container) (event.User, bool) {
	if u == nil {
		return event.User{}, false
	}
	id := str(u, "_id")
	if id == "" {
		id = str(u, "id")
	}
	if id == "" {
		return event.User{}, false
	}
	out := event.User{
		ID:          id,
		Username:    str(u, "username"),
		Role:        roleOf(u),
		SongsPlayed: integer(u, "playedCount"),
		Dubs:        integer(u, "dubs"),
		Muted:       boolean(u, "muted"),
		Grabbed:     boolean(u, "grab"),
	}
	if ms, ok := num(u, "created"); ok && ms > 0 {
		out.JoinDate = time.UnixMilli(int64(ms))
	}
	switch str(u, "dub") {
	case voteUp:
		out.Vote = 1
	case voteDown:
		out.Vote = -1
	}
	return out, true
}

func mediaField(p *gabs.Container) (event.Media, bool) {
	return mediaObject(object(p, "media"))
}

// mediaObject: длительность у вендора в миллисекундах.
func mediaObject(m *gabs.Container) (event.Media, bool) {
	if m == nil {
		return event.Media{}, false
	}
	id := str(m, "fkid")
	if id == "" {
		id = str(m, "id")
	}
	ms, _ := num(m, "songLength")
	return event.Media{
		ContentID: id,
		Duration:  (time.Duration(ms) * time.Millisecond).Truncate(time.Second),
		FullTitle: str(m, "name"),
	}, true
}
