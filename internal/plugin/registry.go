package plugin

import (
	"maps"
	"slices"
	"sync"
)

type (
	CommandFactory  func() Command
	ListenerFactory func() Listener
)

var (
	regMu     sync.RWMutex
	commands  = map[string]CommandFactory{}
	listeners = map[string]ListenerFactory{}
)

// RegisterCommand регистрирует фабрику команды. Повтор имени или nil —
// ошибка программиста, паникуем, как database/sql.Register.
func RegisterCommand(name string, f CommandFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	if f == nil {
		panic("plugin: RegisterCommand factory is nil for " + name)
	}
	if _, dup := commands[name]; dup {
		panic("plugin: RegisterCommand called twice for " + name)
	}
	commands[name] = f
}

func RegisterListener(name string, f ListenerFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	if f == nil {
		panic("plugin: RegisterListener factory is nil for " + name)
	}
	if _, dup := listeners[name]; dup {
		panic("plugin: RegisterListener called twice for " + name)
	}
	listeners[name] = f
}

// Commands — имена зарегистрированных команд по алфавиту.
func Commands() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return slices.Sorted(maps.Keys(commands))
}

func Listeners() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	return slices.Sorted(maps.Keys(listeners))
}

func commandFactory(name string) (CommandFactory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := commands[name]
	return f, ok
}

func listenerFactory(name string) (ListenerFactory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := listeners[name]
	return f, ok
}
