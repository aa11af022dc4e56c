/*
Package session serializes operations on machines.

Every mutating operation on a machine runs inside Manager.WithLock: a per-ID mutex
for the local process plus, when configured, a ports.DistributedLocker so that
several replicas sharing a store never interleave load, step and save.
*/
package session
