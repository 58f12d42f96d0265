package lifecycle

import "github.com/bft-labs/rolekeeper/pkg/device"

// NoopListener ignores every notification.
type NoopListener struct{}

func (NoopListener) OnMasterRoleAcquired(device.Info)                        {}
func (NoopListener) OnSlaveRoleAcquired(device.Info)                         {}
func (NoopListener) OnSlaveRoleNotAcquired(device.Info)                      {}
func (NoopListener) OnNotAbleToStartMastershipMandatory(device.Info, string) {}

// MultiListener forwards each notification to every listener, in order.
type MultiListener []MastershipChangeListener

func (m MultiListener) OnMasterRoleAcquired(info device.Info) {
	for _, l := range m {
		l.OnMasterRoleAcquired(info)
	}
}

func (m MultiListener) OnSlaveRoleAcquired(info device.Info) {
	for _, l := range m {
		l.OnSlaveRoleAcquired(info)
	}
}

func (m MultiListener) OnSlaveRoleNotAcquired(info device.Info) {
	for _, l := range m {
		l.OnSlaveRoleNotAcquired(info)
	}
}

func (m MultiListener) OnNotAbleToStartMastershipMandatory(info device.Info, reason string) {
	for _, l := range m {
		l.OnNotAbleToStartMastershipMandatory(info, reason)
	}
}
