package models

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrNotAuthorized is returned when the caller is neither the cluster's
	// organizer nor a provider with a bid on it. It deliberately reveals
	// nothing about the cluster beyond the lack of access.
	ErrNotAuthorized = errors.New("caller is not authorized for this cluster")

	// ErrNoConfirmedUnits is returned when an optimization is requested for
	// a cluster with no participants holding a confirmed unit id.
	ErrNoConfirmedUnits = errors.New("cluster has no participants with confirmed units")

	// ErrNoTimeBlocks is returned when a cluster has no candidate time
	// blocks to vote on.
	ErrNoTimeBlocks = errors.New("cluster has no candidate time blocks")

	// ErrLocationUnavailable is returned when no live position source is
	// attached and no usable cached position exists.
	ErrLocationUnavailable = errors.New("device location is unavailable")

	// ErrLocationPermissionDenied is returned when the device refused
	// location access. Surfaced verbatim; the service never retries.
	ErrLocationPermissionDenied = errors.New("location permission denied")

	// ErrPositionTimeout is returned when a one-shot position request
	// exceeded its configured budget.
	ErrPositionTimeout = errors.New("position request timed out")

	// ErrAlreadyWatching is returned when a watch is started on a session
	// that is already in the watching state.
	ErrAlreadyWatching = errors.New("session is already watching")
)
