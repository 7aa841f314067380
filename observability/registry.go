package observability

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/zap"
)

var (
	observers = map[string]Observer{
		"noop": NoOpObserver{},
		"slog": NewSlogObserver(slog.Default()),
		"zap":  NewZapObserver(zap.L()),
	}
	mutex sync.RWMutex
)

// GetObserver returns a registered observer by name. "noop", "slog" and
// "zap" are pre-registered; "zap" writes to the logger installed with
// zap.ReplaceGlobals at init time, so processes that install their own
// logger re-register it with RegisterObserver.
func GetObserver(name string) (Observer, error) {
	mutex.RLock()
	defer mutex.RUnlock()

	obs, exists := observers[name]
	if !exists {
		return nil, fmt.Errorf("unknown observer: %s", name)
	}
	return obs, nil
}

// RegisterObserver adds or replaces a named observer.
func RegisterObserver(name string, observer Observer) {
	mutex.Lock()
	defer mutex.Unlock()

	observers[name] = observer
}
