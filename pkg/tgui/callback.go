package tgui

import "strings"

// Data formats inline callback data as "action:arg:arg...".
// Args are kept as-is (no escaping); keep them free of ':'.
func Data(action string, args ...string) string {
	action = strings.TrimSpace(action)
	if len(args) == 0 {
		return action
	}
	return action + ":" + strings.Join(args, ":")
}
