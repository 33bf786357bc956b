// Package plugin — контракты команд и слушателей, реестр модулей и роутер
// чат-команд.
//
// Модуль регистрирует фабрику по имени из init (RegisterCommand,
// RegisterListener), конфиг перечисляет включённые имена, Load проверяет
// каждый модуль и подключает его к боту. Любая ошибка формы модуля —
// ValidationError, бот с такими модулями не стартует.
package plugin

import (
	"fmt"

	"github.com/EgorLis/dubbot/internal/bot"
	"github.com/EgorLis/dubbot/internal/event"
)

// Command — чат-команда. Triggers — токены без "!".
type Command interface {
	Triggers() []string
	Handle(c *bot.ChatContext)
}

// RoleGated — команда с минимальной ролью.
type RoleGated interface {
	MinimumRole() event.Role
}

// PermissionDenied вызывается вместо Handle, если роли не хватает.
type PermissionDenied interface {
	HandleInsufficientPermissions(c *bot.ChatContext)
}

// Initializer вызывается один раз при загрузке, до Run.
type Initializer interface {
	Init(st *bot.State) error
}

// RouterAware получает роутер после загрузки (например, help).
type RouterAware interface {
	UseRouter(r *Router)
}

// Listener — слушатель событий комнаты.
type Listener interface {
	Handlers() map[event.Name]bot.Handler
}

type ValidationError struct {
	Kind   string // command | listener
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plugin: %s %q: %s", e.Kind, e.Name, e.Reason)
}
