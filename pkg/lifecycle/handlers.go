package lifecycle

import (
	"fmt"

	"github.com/bft-labs/rolekeeper/pkg/device"
	"github.com/bft-labs/rolekeeper/pkg/log"
)

// removedHandlers is the append-only, insertion-ordered list of handlers to
// notify when the device session ends. It has no lock of its own: the
// owning Service guards it with the mutex that also covers the close
// transition.
type removedHandlers struct {
	handlers []DeviceRemovedHandler
}

func (r *removedHandlers) add(h DeviceRemovedHandler) {
	r.handlers = append(r.handlers, h)
}

func (r *removedHandlers) len() int {
	return len(r.handlers)
}

// drain hands the current handlers to the caller and leaves r empty.
func (r *removedHandlers) drain() []DeviceRemovedHandler {
	out := r.handlers
	r.handlers = nil
	return out
}

// fireAll notifies every handler once, in order. A panicking handler is
// logged and does not stop the remaining ones.
func fireAll(handlers []DeviceRemovedHandler, info device.Info, logger log.Logger) {
	for i, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("device removed handler panicked",
						log.Int("handler", i),
						log.String("panic", fmt.Sprint(r)),
					)
				}
			}()
			h.OnDeviceRemoved(info)
		}()
	}
}
