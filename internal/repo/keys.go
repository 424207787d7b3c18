package repo

// Key namespaces. Components never read across namespaces; only the profile
// associator touches both TempProfileKey and UserProfileKey in one operation.
const (
	resultPrefix      = "result:"
	tempProfilePrefix = "temp_profile:"
	userProfilePrefix = "user_profile:"
	dispatchKeyPrefix = "dispatch_key:"
)

// ResultKey names the stored payload of a job.
func ResultKey(correlationID string) string { return resultPrefix + correlationID }

// TempProfileKey names a profile staged before authentication.
func TempProfileKey(tempID string) string { return tempProfilePrefix + tempID }

// UserProfileKey names the durable profile owned by an identity.
func UserProfileKey(identityID string) string { return userProfilePrefix + identityID }

// DispatchKey names the correlation id issued for a client idempotency key.
func DispatchKey(idempotencyKey string) string { return dispatchKeyPrefix + idempotencyKey }
