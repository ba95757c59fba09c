// Package propagate implements the season watch-status propagation job.
//
// A job changes the watch flag of the eligible episodes of one season in the
// local catalog, recomputes the season's last-watched pointer in the same
// transaction, and assembles the payloads for the remote mirror and the
// tracking service. Sending those payloads is the Dispatcher's job and only
// happens after the local transaction committed; a remote failure never
// rolls back local state.
//
// Flow:
//
//	Created → LocalUpdateApplied → PointerUpdated → RemoteAssembled
//	        → ConfirmationReady → Done
//
// with Aborted reachable from Created and LocalUpdateApplied. Jobs for the
// same season must not overlap; Queue enforces that.
package propagate
