/*
Package ports defines the driven ports (interfaces) of the nutri engine.

These interfaces decouple the conversation core from external implementations,
allowing it to work with various storage backends, delegate backends and chat
transports.

# Key Interfaces

  - SessionStore: persists one versioned Session per user (compare-and-swap saves).
  - DistributedLocker: serializes a user's handling cycle across replicas.
  - Gateway: the remote business delegates (activation, profile, item log, summary).
  - Notifier: delivers outbound chat messages.
*/
package ports
