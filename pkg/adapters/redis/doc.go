// Package redis provides Redis-backed session storage and distributed locking
// for multi-replica deployments.
package redis
