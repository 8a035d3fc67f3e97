package graph

import (
	"fmt"
)

// AuthError means credential acquisition failed on both the silent and the
// interactive path. Fatal for any sync; the user must retry login.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("graph authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ContainerResolutionError means a required site or list could not be
// located. The core must not proceed with partial containers.
type ContainerResolutionError struct {
	Container string
	Err       error
}

func (e *ContainerResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve container %q: %v", e.Container, e.Err)
}

func (e *ContainerResolutionError) Unwrap() error { return e.Err }

// RemoteWriteError reports a failed create/update/delete. The store leaves
// local state unchanged and surfaces it to the caller; no automatic retry.
type RemoteWriteError struct {
	Collection Collection
	ItemID     string
	StatusCode int
	Body       string
}

func (e *RemoteWriteError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("remote write to %s failed: status %d: %s", e.Collection, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("remote write to %s/%s failed: status %d: %s", e.Collection, e.ItemID, e.StatusCode, e.Body)
}
