// Package audit implements asynchronous delivery of security-relevant
// events.
//
// [Dispatcher] buffers [Event] values and relays them to a [Sink] from one
// background goroutine, either dropping or blocking when the buffer is
// full. The package does not decide which events exist; the engine does.
package audit
