// Package hotkey — медиа-клавиши оператора как действия бота:
// громкость вверх — woot, вниз — meh, mute — grab.
//
// Хук клавиатуры есть только под Windows (WH_KEYBOARD_LL, один на
// процесс). На остальных системах New возвращает ErrUnsupported.
package hotkey

import (
	"errors"
	"log/slog"

	"github.com/EgorLis/dubbot/internal/bot"
)

var ErrUnsupported = errors.New("hotkey: not supported on this platform")

type Key uint8

const (
	VolumeUp Key = iota + 1
	VolumeDown
	Mute
)

func (k Key) String() string {
	switch k {
	case VolumeUp:
		return "volume-up"
	case VolumeDown:
		return "volume-down"
	case Mute:
		return "mute"
	}
	return "unknown"
}

// Bindings — что делать по клавише. Клавиша без привязки проходит в
// систему как обычно.
type Bindings map[Key]func()

// Dispatch вызывает привязку; false — клавиша не наша.
func (b Bindings) Dispatch(k Key) bool {
	fn, ok := b[k]
	if !ok || fn == nil {
		return false
	}
	fn()
	return true
}

// ForBot привязывает клавиши к реакциям бота. Колбэк хука приходит из
// потока ОС, поэтому действие уходит в цикл через Do.
func ForBot(b *bot.Bot, logger *slog.Logger) Bindings {
	if logger == nil {
		logger = slog.Default()
	}
	react := func(k Key, name string, act func(*bot.Bot, bot.Callback)) func() {
		return func() {
			logger.Debug("hotkey pressed", "key", k, "action", name)
			b.Do(func(st *bot.State) {
				act(st.Bot, func(ok bool) {
					if !ok {
						logger.Info("hotkey action rejected", "action", name)
					}
				})
			})
		}
	}
	return Bindings{
		VolumeUp:   react(VolumeUp, "woot", (*bot.Bot).Woot),
		VolumeDown: react(VolumeDown, "meh", (*bot.Bot).Meh),
		Mute:       react(Mute, "grab", (*bot.Bot).Grab),
	}
}
