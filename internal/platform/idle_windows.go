package platform

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"
)

var (
	procGetLastInputInfo = syscall.NewLazyDLL("user32.dll").NewProc("GetLastInputInfo")
	procGetTickCount64   = syscall.NewLazyDLL("kernel32.dll").NewProc("GetTickCount64")
)

// lastInputInfo mirrors the win32 LASTINPUTINFO layout. dwTime is the
// millisecond tick count at the last input event.
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

// IdleDuration derives idle time as the gap between the current tick
// count and the tick count of the last input event.
func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	ok, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ok == 0 {
		if err != nil {
			return 0, fmt.Errorf("get last input info: %w", err)
		}
		return 0, fmt.Errorf("get last input info: unknown error")
	}

	ticks, _, tickErr := procGetTickCount64.Call()
	if ticks == 0 && tickErr != nil {
		return 0, fmt.Errorf("get tick count: %w", tickErr)
	}

	// dwTime is a 32-bit tick count that wraps every 49.7 days, so the
	// subtraction has to happen in 32-bit space to survive the wrap.
	idleMillis := uint32(ticks) - info.dwTime
	return time.Duration(idleMillis) * time.Millisecond, nil
}
