package config

import "regexp"

var (
	userIDPattern = regexp.MustCompile(`^@[^:]+:[^:]+$`)
	roomIDPattern = regexp.MustCompile(`^![^:]+:[^:]+$`)
)

// IsUserID reports whether s looks like a chat user ID (@local:domain).
func IsUserID(s string) bool {
	return userIDPattern.MatchString(s)
}

// IsRoomID reports whether s looks like a chat room ID (!opaque:domain).
func IsRoomID(s string) bool {
	return roomIDPattern.MatchString(s)
}
