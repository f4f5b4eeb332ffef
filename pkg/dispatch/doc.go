// Package dispatch turns inbound chat events into session transitions.
//
// The Dispatcher is the only component that ties the state machine, the session
// Manager and the outbound Notifier together: one Handle call is one complete
// handling cycle for one message of one user.
package dispatch
