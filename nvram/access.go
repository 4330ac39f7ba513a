package nvram

import "crypto/subtle"

// authEqual is a length-equal, constant-time comparison: it never
// short-circuits on the first mismatching byte, per the specification's
// explicit upgrade over the reference implementation's plain equality.
func authEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// checkWriteAccess evaluates §4.5's write-access rule for an existing
// space. entry may be nil if the space has no transient table entry
// (should not happen for a loaded space, but defensive).
func checkWriteAccess(space NvramSpace, entry *SpaceListEntry, auth []byte) Result {
	if space.writeLocked() && space.Controls&PersistentWriteLock != 0 {
		return OperationDisabled
	}
	if entry != nil && entry.BootWriteLocked && space.Controls&BootWriteLock != 0 {
		return OperationDisabled
	}
	if space.Controls&WriteAuthorization != 0 && !authEqual(auth, space.AuthorizationValue) {
		return AuthorizationFailed
	}
	return Success
}

// checkDeleteAuthorization evaluates the write-authorization-value
// equality branch of §4.5's write-access rule, for DeleteSpace: per
// §4.4.4, deletion is a create-side operation that a persistent or
// boot write-lock does not block, only WRITE_AUTHORIZATION does.
func checkDeleteAuthorization(space NvramSpace, auth []byte) Result {
	if space.Controls&WriteAuthorization != 0 && !authEqual(auth, space.AuthorizationValue) {
		return AuthorizationFailed
	}
	return Success
}

// checkReadAccess evaluates §4.5's read-access rule for an existing space.
func checkReadAccess(space NvramSpace, entry *SpaceListEntry, auth []byte) Result {
	if entry != nil && entry.BootReadLocked && space.Controls&BootReadLock != 0 {
		return OperationDisabled
	}
	if space.Controls&ReadAuthorization != 0 && !authEqual(auth, space.AuthorizationValue) {
		return AuthorizationFailed
	}
	return Success
}
