package builtin

import (
	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
	"github.com/EgorLis/dubbot/internal/plugin"
)

func init() {
	plugin.RegisterListener("welcome", func() plugin.Listener { return welcome{} })
	plugin.RegisterListener("deletions", func() plugin.Listener { return deletions{} })
	plugin.RegisterListener("autowoot", func() plugin.Listener { return autowoot{} })
	plugin.RegisterListener("modlog", func() plugin.Listener { return modlog{} })
}

type welcome struct{}

func (welcome) Handlers() map[event.Name]bot.Handler {
	return map[event.Name]bot.Handler{
		event.NameUserJoin: func(st *bot.State, ev event.Event) {
			u := ev.(*event.UserJoin).User
			if u.ID == st.Bot.SelfID() || u.Username == "" {
				return
			}
			st.Bot.SendChat("welcome to the room, @%s!", u.Username)
		},
	}
}

// deletions пишет в лог каскадные удаления, уже посчитанные трекером.
type deletions struct{}

func (deletions) Handlers() map[event.Name]bot.Handler {
	return map[event.Name]bot.Handler{
		event.NameChatDelete: func(st *bot.State, ev event.Event) {
			d := ev.(*event.ChatDelete)
			for _, m := range d.DeletedMessages {
				st.Log.Info("chat deleted",
					"chat_id", m.ChatID,
					"author", m.Username,
					"moderator", d.Moderator.Username,
					"message", m.Message,
				)
			}
			if len(d.DeletedMessages) > 1 {
				st.Log.Info("cascade deletion", "requested", d.ChatID, "deleted", len(d.DeletedMessages))
			}
		},
	}
}

type autowoot struct{}

func (autowoot) Handlers() map[event.Name]bot.Handler {
	return map[event.Name]bot.Handler{
		event.NameAdvance: func(st *bot.State, ev event.Event) {
			if ev.(*event.Advance).IncomingDJ.ID == st.Bot.SelfID() {
				return
			}
			st.Bot.Woot(nil)
		},
	}
}

// modlog — журнал модерации.
type modlog struct{}

func (modlog) Handlers() map[event.Name]bot.Handler {
	return map[event.Name]bot.Handler{
		event.NameModBan: func(st *bot.State, ev event.Event) {
			e := ev.(*event.ModBan)
			st.Log.Info("user banned", "user", e.User.Username, "moderator", e.Moderator.Username, "duration", e.Duration)
		},
		event.NameModKick: func(st *bot.State, ev event.Event) {
			e := ev.(*event.ModKick)
			st.Log.Info("user kicked", "user", e.User.Username, "moderator", e.Moderator.Username, "message", e.Message)
		},
		event.NameModMute: func(st *bot.State, ev event.Event) {
			e := ev.(*event.ModMute)
			st.Log.Info("user mute changed", "user", e.User.Username, "moderator", e.Moderator.Username, "muted", e.Muted)
		},
		event.NameModSkip: func(st *bot.State, ev event.Event) {
			st.Log.Info("track skipped", "moderator", ev.(*event.ModSkip).Moderator.Username)
		},
	}
}
