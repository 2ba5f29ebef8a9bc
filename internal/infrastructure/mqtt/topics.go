package mqtt

import "strings"

// DefaultTopicPrefix is the root of every record event topic.
const DefaultTopicPrefix = "graylogic/records"

// TopicPrefixSystem is the base for system topics.
const TopicPrefixSystem = "graylogic/system"

// Topics builds record event topics under a configurable prefix.
//
//	topics := mqtt.NewTopics("graylogic/records")
//	topics.Event("Buildings", "insert")
//	// Returns: "graylogic/records/Buildings/insert"
//
// Table names are validated identifiers, so they never contain topic
// separators or wildcards.
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. Trailing slashes are
// dropped; an empty prefix selects DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Event returns the topic for one kind of mutation on a table.
//
// Example: graylogic/records/Buildings/insert
func (t Topics) Event(table, op string) string {
	return t.Prefix() + "/" + table + "/" + op
}

// TableEvents returns a pattern matching every event on a table.
//
// Pattern: graylogic/records/Buildings/+
func (t Topics) TableEvents(table string) string {
	return t.Prefix() + "/" + table + "/+"
}

// AllEvents returns a pattern matching every record event.
//
// Pattern: graylogic/records/#
func (t Topics) AllEvents() string {
	return t.Prefix() + "/#"
}

// SystemStatus returns the service status topic, used for the LWT and the
// online/offline announcements.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
