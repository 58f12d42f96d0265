package domain

import (
	"sort"
	"time"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

// DeviceStatus is the last known role of a device.
type DeviceStatus struct {
	ID       device.ID   `json:"id"`
	Endpoint string      `json:"endpoint"`
	Role     device.Role `json:"role"`

	// Connected is false once the device session has been torn down.
	Connected bool `json:"connected"`

	// Reason explains the last failed role change, if any.
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status is the snapshot persisted between runs.
type Status struct {
	Devices   map[device.ID]DeviceStatus `json:"devices"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// NewStatus returns an empty snapshot.
func NewStatus() Status {
	return Status{Devices: make(map[device.ID]DeviceStatus)}
}

// Put records ds, stamping both the entry and the snapshot with now.
func (s *Status) Put(ds DeviceStatus, now time.Time) {
	if s.Devices == nil {
		s.Devices = make(map[device.ID]DeviceStatus)
	}
	ds.UpdatedAt = now
	s.Devices[ds.ID] = ds
	s.UpdatedAt = now
}

// Get returns the entry for id.
func (s Status) Get(id device.ID) (DeviceStatus, bool) {
	ds, ok := s.Devices[id]
	return ds, ok
}

// Sorted returns the entries ordered by device id.
func (s Status) Sorted() []DeviceStatus {
	out := make([]DeviceStatus, 0, len(s.Devices))
	for _, ds := range s.Devices {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Masters returns how many connected devices are held in the master role.
func (s Status) Masters() int {
	n := 0
	for _, ds := range s.Devices {
		if ds.Connected && ds.Role == device.RoleMaster {
			n++
		}
	}
	return n
}
