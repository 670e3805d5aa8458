package core

import "time"

// isExpiredAt treats a missing expiry as already expired.
func isExpiredAt(expires *time.Time, now time.Time) bool {
	if expires == nil {
		return true
	}
	return !expires.After(now)
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func cloneTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
