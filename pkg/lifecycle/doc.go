// Package lifecycle coordinates the role this process holds over a single
// managed device and the lifetime of that device's session.
//
// A [Service] is registered with a cluster-wide [SingletonProvider] as a
// candidate owner of the device. When the provider grants ownership it calls
// [Service.InstantiateServiceInstance], which promotes the device to master.
// Slave-role requests complete asynchronously; their outcome is handed to an
// [Executor] and reported through a [MastershipChangeListener], so that the
// goroutine completing the device request never runs listener code.
//
// # Usage
//
//	svc := lifecycle.NewService(listener, executor, lifecycle.WithLogger(logger))
//	svc.RegisterDeviceRemovedHandler(lifecycle.DeviceRemovedHandlerFunc(forget))
//	if _, err := svc.RegisterService(provider, session); err != nil {
//	    return err
//	}
//	...
//	_ = svc.Close() // safe to call any number of times, from any goroutine
//
// # State Machine
//
//   - New -> Registered (RegisterService)
//   - New, Registered -> Closed (Close)
//
// Closed is terminal. The winning Close releases the provider registration
// and notifies every removal handler exactly once, in registration order.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
