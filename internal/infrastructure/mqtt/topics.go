package mqtt

import "strings"

// DefaultTopicPrefix is used when the config leaves topic_prefix empty.
const DefaultTopicPrefix = "authsvc"

// Topics builds the service's MQTT topic names under a common prefix.
//
//	topics := mqtt.NewTopics("authsvc")
//	topics.Event("login") // "authsvc/events/login"
type Topics struct {
	prefix string
}

// NewTopics returns a Topics rooted at prefix (trailing slashes trimmed).
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Event returns the topic for one auth event action.
func (t Topics) Event(action string) string {
	return t.prefix + "/events/" + action
}

// AllEvents returns the wildcard matching every event topic.
func (t Topics) AllEvents() string {
	return t.prefix + "/events/+"
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string {
	return t.prefix + "/system/status"
}
