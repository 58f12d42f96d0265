package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bft-labs/rolekeeper/pkg/device"
)

func newTestListener(t *testing.T) (*Listener, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	l, err := NewListener(mp)
	require.NoError(t, err)
	return l, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "unexpected aggregation %T", data)

	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestListener_RoleChanges(t *testing.T) {
	l, reader := newTestListener(t)
	node := device.Info{ID: "node-1"}

	l.OnMasterRoleAcquired(node)
	l.OnSlaveRoleAcquired(node)
	l.OnSlaveRoleAcquired(node)
	l.OnSlaveRoleNotAcquired(node)
	l.OnNotAbleToStartMastershipMandatory(node, "device refused")

	data := collect(t, reader)
	changes := data["role_changes_total"]
	assert.EqualValues(t, 1, sumFor(t, changes,
		attribute.String("role", "master"), attribute.String("outcome", OutcomeAcquired)))
	assert.EqualValues(t, 2, sumFor(t, changes,
		attribute.String("role", "slave"), attribute.String("outcome", OutcomeAcquired)))
	assert.EqualValues(t, 1, sumFor(t, changes,
		attribute.String("role", "slave"), attribute.String("outcome", OutcomeNotAcquired)))
	assert.EqualValues(t, 1, sumFor(t, changes,
		attribute.String("role", "master"), attribute.String("outcome", OutcomeFailed)))
}

func TestListener_MasterDevices(t *testing.T) {
	l, reader := newTestListener(t)
	a := device.Info{ID: "node-1"}
	b := device.Info{ID: "node-2"}

	l.OnMasterRoleAcquired(a)
	l.OnMasterRoleAcquired(a)
	l.OnMasterRoleAcquired(b)
	assert.EqualValues(t, 2, sumFor(t, collect(t, reader)["master_devices"]))

	l.OnSlaveRoleAcquired(a)
	l.OnDeviceRemoved(b)
	l.OnDeviceRemoved(b)

	data := collect(t, reader)
	assert.EqualValues(t, 0, sumFor(t, data["master_devices"]))
	assert.EqualValues(t, 2, sumFor(t, data["devices_removed_total"]))
}
