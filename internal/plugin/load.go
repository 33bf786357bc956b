package plugin

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
)

// Manifest — включённые модули по именам из реестра.
type Manifest struct {
	Commands  []string
	Listeners []string
}

type loadedListener struct {
	name     string
	listener Listener
	handlers map[event.Name]bot.Handler
}

// Load проверяет все модули манифеста и только потом подключает их: при
// любой ошибке к боту не добавляется ничего. Роутер встаёт на NameChat
// раньше слушателей из манифеста.
func Load(b *bot.Bot, m Manifest) (*Router, error) {
	st := b.State()
	log := st.Log.With("component", "plugin")

	var errs []error
	router := NewRouter(st.Options.CaseSensitive, log)

	type loadedCommand struct {
		name string
		cmd  Command
	}
	var cmds []loadedCommand
	for _, name := range m.Commands {
		cmd, err := buildCommand(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cmds = append(cmds, loadedCommand{name, cmd})
	}

	var lsts []loadedListener
	for _, name := range m.Listeners {
		l, err := buildListener(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lsts = append(lsts, l)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for _, c := range cmds {
		if err := initialize(st, c.cmd); err != nil {
			return nil, fmt.Errorf("plugin: init command %q: %w", c.name, err)
		}
		router.Add(c.name, c.cmd)
	}
	for _, l := range lsts {
		if err := initialize(st, l.listener); err != nil {
			return nil, fmt.Errorf("plugin: init listener %q: %w", l.name, err)
		}
	}
	for _, c := range cmds {
		if ra, ok := c.cmd.(RouterAware); ok {
			ra.UseRouter(router)
		}
	}

	b.On(event.NameChat, router.Dispatch)
	for _, l := range lsts {
		// порядок внутри модуля — по имени события, чтобы не зависеть от map
		names := make([]event.Name, 0, len(l.handlers))
		for n := range l.handlers {
			names = append(names, n)
		}
		slices.Sort(names)
		for _, n := range names {
			b.On(n, l.handlers[n])
		}
	}

	log.Info("plugins loaded",
		"commands", strings.Join(m.Commands, ","),
		"listeners", strings.Join(m.Listeners, ","),
		"triggers", len(router.Triggers()),
	)
	return router, nil
}

func initialize(st *bot.State, v any) error {
	if i, ok := v.(Initializer); ok {
		return i.Init(st)
	}
	return nil
}

func buildCommand(name string) (Command, error) {
	f, ok := commandFactory(name)
	if !ok {
		return nil, &ValidationError{Kind: "command", Name: name, Reason: "not registered"}
	}
	cmd := f()
	if cmd == nil {
		return nil, &ValidationError{Kind: "command", Name: name, Reason: "factory returned nil"}
	}
	triggers := cmd.Triggers()
	if len(triggers) == 0 {
		return nil, &ValidationError{Kind: "command", Name: name, Reason: "no triggers"}
	}
	for _, t := range triggers {
		if strings.TrimSpace(t) == "" || strings.ContainsAny(t, " \t\n") {
			return nil, &ValidationError{Kind: "command", Name: name, Reason: fmt.Sprintf("bad trigger %q", t)}
		}
	}
	if g, ok := cmd.(RoleGated); ok && g.MinimumRole() > event.RoleOwner {
		return nil, &ValidationError{Kind: "command", Name: name, Reason: "unknown minimum role"}
	}
	return cmd, nil
}

func buildListener(name string) (loadedListener, error) {
	f, ok := listenerFactory(name)
	if !ok {
		return loadedListener{}, &ValidationError{Kind: "listener", Name: name, Reason: "not registered"}
	}
	l := f()
	if l == nil {
		return loadedListener{}, &ValidationError{Kind: "listener", Name: name, Reason: "factory returned nil"}
	}
	handlers := l.Handlers()
	if len(handlers) == 0 {
		return loadedListener{}, &ValidationError{Kind: "listener", Name: name, Reason: "no handlers"}
	}
	for n, h := range handlers {
		if !n.Valid() {
			return loadedListener{}, &ValidationError{Kind: "listener", Name: name, Reason: fmt.Sprintf("unknown event %d", n)}
		}
		if h == nil {
			return loadedListener{}, &ValidationError{Kind: "listener", Name: name, Reason: "nil handler for " + n.String()}
		}
	}
	return loadedListener{name: name, listener: l, handlers: handlers}, nil
}
