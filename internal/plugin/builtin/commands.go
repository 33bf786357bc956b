// Package builtin — встроенные команды и слушатели. Регистрируются в
// реестре plugin из init; какие из них включены, решает конфиг.
//
// Команды:
//   - !help — список триггеров;
//   - !woot, !meh, !grab — реакция бота на текущий трек;
//   - !skip — пропуск трека (от vip);
//   - !lastplayed — когда этот трек играл в прошлый раз;
//   - !stats — голоса текущего трека;
//   - !move <username> <position> — перестановка в очереди (от mod).
//
// Слушатели: welcome, deletions, autowoot, modlog.
package builtin

import (
	"strconv"
	"strings"
	"time"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
	"github.com/EgorLis/dubbot/internal/plugin"
)

func init() {
	plugin.RegisterCommand("help", func() plugin.Command { return &help{} })
	plugin.RegisterCommand("woot", func() plugin.Command {
		return &reaction{triggers: []string{"woot", "updub"}, verb: "woot", act: (*bot.Bot).Woot}
	})
	plugin.RegisterCommand("meh", func() plugin.Command {
		return &reaction{triggers: []string{"meh", "downdub"}, verb: "meh", act: (*bot.Bot).Meh}
	})
	plugin.RegisterCommand("grab", func() plugin.Command {
		return &reaction{triggers: []string{"grab", "snag"}, verb: "grab", act: (*bot.Bot).Grab}
	})
	plugin.RegisterCommand("skip", func() plugin.Command { return skip{} })
	plugin.RegisterCommand("lastplayed", func() plugin.Command { return lastPlayed{} })
	plugin.RegisterCommand("stats", func() plugin.Command { return stats{} })
	plugin.RegisterCommand("move", func() plugin.Command { return move{} })
}

// ---------- help ----------

type help struct {
	router *plugin.Router
}

func (h *help) Triggers() []string         { return []string{"help", "commands"} }
func (h *help) UseRouter(r *plugin.Router) { h.router = r }

func (h *help) Handle(c *bot.ChatContext) {
	if h.router == nil {
		return
	}
	triggers := h.router.Triggers()
	c.Reply("commands: %s", "!"+strings.Join(triggers, ", !"))
}

// ---------- woot / meh / grab ----------

type reaction struct {
	triggers []string
	verb     string
	act      func(b *bot.Bot, cb bot.Callback)
}

func (r *reaction) Triggers() []string { return r.triggers }

func (r *reaction) Handle(c *bot.ChatContext) {
	r.act(c.Bot, func(ok bool) {
		if !ok {
			c.Reply("can't %s right now", r.verb)
		}
	})
}

// ---------- skip ----------

type skip struct{}

func (skip) Triggers() []string      { return []string{"skip"} }
func (skip) MinimumRole() event.Role { return event.RoleVIP }

func (skip) Handle(c *bot.ChatContext) {
	c.Bot.Skip(func(ok bool) {
		if ok {
			c.Bot.SendChat("track skipped by %s", c.Chat.Username)
			return
		}
		c.Reply("skip failed")
	})
}

func (skip) HandleInsufficientPermissions(c *bot.ChatContext) {
	c.Reply("you need to be at least %s to skip", event.RoleVIP)
}

// ---------- lastplayed ----------

type lastPlayed struct{}

func (lastPlayed) Triggers() []string { return []string{"lastplayed", "lp"} }

func (lastPlayed) Handle(c *bot.ChatContext) {
	cur, ok := c.Room.CurrentPlay()
	if !ok {
		c.Reply("nothing is playing")
		return
	}
	// plays[0] — текущее проигрывание
	plays := c.Room.PlaysByContentID(cur.Media.ContentID)
	if len(plays) < 2 {
		c.Reply("%s has not been played here recently", cur.Media.FullTitle)
		return
	}
	prev := plays[1]
	ago := c.Clock.Now().Sub(prev.StartDate).Round(time.Minute)
	c.Reply("%s was last played %s ago by %s (%s woots, %s mehs)",
		cur.Media.FullTitle, ago.String(), prev.DJ.Username, len(prev.Votes.Woots), len(prev.Votes.Mehs))
}

// ---------- stats ----------

type stats struct{}

func (stats) Triggers() []string { return []string{"stats"} }

func (stats) Handle(c *bot.ChatContext) {
	p, ok := c.Room.CurrentPlay()
	if !ok {
		c.Reply("nothing is playing")
		return
	}
	c.Reply("%s by %s: %s woots, %s mehs, %s grabs",
		p.Media.FullTitle, p.DJ.Username, len(p.Votes.Woots), len(p.Votes.Mehs), len(p.Votes.Grabs))
}

// ---------- move ----------

type move struct{}

func (move) Triggers() []string      { return []string{"move"} }
func (move) MinimumRole() event.Role { return event.RoleMod }

// Handle: позиция в чате с единицы.
func (move) Handle(c *bot.ChatContext) {
	fields := splitArgs(c.Chat.Message)
	if len(fields) != 3 {
		c.Reply("usage: !move <username> <position>")
		return
	}
	pos, err := strconv.Atoi(fields[2])
	if err != nil || pos < 1 {
		c.Reply("position must be a number from 1")
		return
	}
	u, ok := c.Room.UserByName(fields[1])
	if !ok {
		c.Reply("no user %s in the room", fields[1])
		return
	}
	c.Bot.MoveDJ(u.ID, pos-1, func(ok bool) {
		if ok {
			c.Reply("moved %s to position %s", u.Username, pos)
			return
		}
		c.Reply("could not move %s", u.Username)
	})
}

func (move) HandleInsufficientPermissions(c *bot.ChatContext) {
	c.Reply("you need to be at least %s to move djs", event.RoleMod)
}
