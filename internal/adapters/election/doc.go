// Package election provides singleton providers that decide which process
// owns a device.
//
// LocalProvider keeps the candidates in memory and is meant for a single
// process or for tests. KubernetesProvider runs one Lease based leader
// election per device so that several controller replicas can share an
// inventory.
package election
