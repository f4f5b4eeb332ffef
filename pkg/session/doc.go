/*
Package session implements per-user session management and persistence orchestration.

The Manager serializes the handling cycle (load, transition, save) of each user
across goroutines with a ref-counted mutex map, across replicas with an optional
DistributedLocker, and finally through the optimistic version check of the
SessionStore, retrying the cycle when a concurrent writer wins.
*/
package session
