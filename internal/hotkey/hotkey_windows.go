//go:build windows

package hotkey

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// --- WinAPI ---

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	vkVolumeMute = 0xAD
	vkVolumeDown = 0xAE
	vkVolumeUp   = 0xAF
)

var vkKeys = map[uint32]Key{
	vkVolumeUp:   VolumeUp,
	vkVolumeDown: VolumeDown,
	vkVolumeMute: Mute,
}

type kbdLLHookStruct struct {
	VKCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

// WH_KEYBOARD_LL один на процесс
var (
	curMu   sync.Mutex
	current *Hook
)

type Hook struct {
	bindings Bindings
	log      *slog.Logger

	hHook    uintptr
	threadID uint32
	started  atomic.Bool
	ready    chan error
}

// New создаёт, но не запускает хук.
func New(b Bindings, logger *slog.Logger) (*Hook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{bindings: b, log: logger}, nil
}

// Start ставит глобальный хук в отдельном потоке и ждёт результата установки.
func (h *Hook) Start() error {
	if h.started.Swap(true) {
		return errors.New("hotkey: already started")
	}

	curMu.Lock()
	if current != nil {
		curMu.Unlock()
		h.started.Store(false)
		return errors.New("hotkey: another hook is already installed")
	}
	current = h
	curMu.Unlock()

	h.ready = make(chan error, 1)
	go h.run()
	if err := <-h.ready; err != nil {
		h.release()
		return err
	}
	h.log.Info("hotkeys installed")
	return nil
}

// Close снимает хук и завершает цикл сообщений.
func (h *Hook) Close() error {
	if !h.started.Load() {
		return nil
	}
	h.started.Store(false)

	if h.hHook != 0 {
		procUnhookWindowsHookEx.Call(h.hHook)
		h.hHook = 0
	}
	// WM_QUIT в поток хука, чтобы GetMessage вернулся
	if h.threadID != 0 {
		procPostThreadMessageW.Call(uintptr(h.threadID), uintptr(wmQuit), 0, 0)
	}
	h.release()
	return nil
}

func (h *Hook) release() {
	h.started.Store(false)
	curMu.Lock()
	if current == h {
		current = nil
	}
	curMu.Unlock()
}

func (h *Hook) run() {
	// хук и цикл сообщений обязаны жить в одном потоке ОС
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.threadID = windows.GetCurrentThreadId()

	cb := syscall.NewCallback(llKeyboardProc)
	ret, _, err := procSetWindowsHookExW.Call(uintptr(whKeyboardLL), cb, 0, 0)
	if ret == 0 {
		h.ready <- errors.Join(errors.New("hotkey: SetWindowsHookExW failed"), err)
		return
	}
	h.hHook = ret
	h.ready <- nil

	var m msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 || !h.started.Load() {
			break
		}
	}
	h.log.Debug("hotkey loop exited")
}

// llKeyboardProc: 1 — «проглотить» клавишу, иначе CallNextHookEx.
func llKeyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == 0 && (wParam == wmKeyDown || wParam == wmSysKeyDown) {
		//nolint:govet // lParam — указатель на KBDLLHOOKSTRUCT от ОС
		k := (*kbdLLHookStruct)(unsafe.Pointer(lParam))

		curMu.Lock()
		h := current
		curMu.Unlock()

		if key, ok := vkKeys[k.VKCode]; ok && h != nil && h.started.Load() {
			if h.bindings.Dispatch(key) {
				return 1
			}
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return r
}
