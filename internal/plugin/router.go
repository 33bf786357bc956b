package plugin

import (
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
)

type route struct {
	name     string
	cmd      Command
	triggers []string
}

// Router раздаёт чат-команды. Одну команду может слушать несколько модулей,
// срабатывают все совпадения, каждое независимо.
type Router struct {
	caseSensitive bool
	log           *slog.Logger
	routes        []route
}

func NewRouter(caseSensitive bool, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{caseSensitive: caseSensitive, log: logger}
}

func (r *Router) Add(name string, c Command) {
	r.routes = append(r.routes, route{name: name, cmd: c, triggers: slices.Clone(c.Triggers())})
}

func (r *Router) match(trigger, token string) bool {
	if r.caseSensitive {
		return trigger == token
	}
	return strings.EqualFold(trigger, token)
}

// Dispatch — слушатель NameChat.
func (r *Router) Dispatch(st *bot.State, ev event.Event) {
	chat, ok := ev.(*event.Chat)
	if !ok || chat.Command == "" {
		return
	}
	c := &bot.ChatContext{State: st, Chat: chat}

	for _, rt := range r.routes {
		if !slices.ContainsFunc(rt.triggers, func(t string) bool { return r.match(t, chat.Command) }) {
			continue
		}
		if g, ok := rt.cmd.(RoleGated); ok && !chat.UserRole.AtLeast(g.MinimumRole()) {
			r.log.Info("command denied",
				"command", rt.name,
				"user", chat.Username,
				"role", chat.UserRole.String(),
				"need", g.MinimumRole().String(),
			)
			if d, ok := rt.cmd.(PermissionDenied); ok {
				r.run(rt.name, func() { d.HandleInsufficientPermissions(c) })
			}
			continue
		}
		r.log.Debug("command", "command", rt.name, "user", chat.Username, "args", chat.Args)
		r.run(rt.name, func() { rt.cmd.Handle(c) })
	}
}

// run — паника одной команды не мешает остальным совпадениям.
func (r *Router) run(name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("command panicked", "command", name, "panic", p, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Triggers — все триггеры по порядку регистрации, без повторов.
func (r *Router) Triggers() []string {
	var out []string
	for _, rt := range r.routes {
		for _, t := range rt.triggers {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	return out
}
