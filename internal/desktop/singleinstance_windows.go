//go:build windows

package desktop

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	findWindow    = user32.NewProc("FindWindowW")
	setForeground = user32.NewProc("SetForegroundWindow")
	showWindow    = user32.NewProc("ShowWindow")
	isIconic      = user32.NewProc("IsIconic")
)

const (
	// Mutex name for single-instance enforcement
	mutexName = "ChatDeskGUI_SingleInstance"

	swRestore = 9
)

// singleInstanceMutex holds the mutex handle (kept alive for process lifetime)
var singleInstanceMutex windows.Handle

// EnsureSingleInstance checks if another instance is already running.
// Returns true if this is the first instance. Otherwise the existing
// window is brought to the foreground and false is returned.
func EnsureSingleInstance() bool {
	name, err := windows.UTF16PtrFromString(mutexName)
	if err != nil {
		return true
	}

	handle, err := windows.CreateMutex(nil, false, name)
	if err == windows.ERROR_ALREADY_EXISTS {
		if handle != 0 {
			windows.CloseHandle(handle)
		}
		bringExistingToForeground()
		return false
	}
	if err != nil {
		// Without a mutex we cannot tell; let this instance run
		return true
	}

	singleInstanceMutex = handle
	return true
}

// bringExistingToForeground attempts to find and activate the existing window.
func bringExistingToForeground() {
	if findWindow.Find() != nil {
		return
	}
	title, _ := windows.UTF16PtrFromString(defaultTitle())
	hwnd, _, _ := findWindow.Call(0, uintptr(unsafe.Pointer(title)))
	if hwnd == 0 {
		return
	}
	if iconic, _, _ := isIconic.Call(hwnd); iconic != 0 {
		showWindow.Call(hwnd, swRestore)
	}
	setForeground.Call(hwnd)
}
