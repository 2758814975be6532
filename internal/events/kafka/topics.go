// File: internal/events/kafka/topics.go
package kafka

// SessionEventsTopic is the Kafka topic for session lifecycle events.
const SessionEventsTopic = "session.events"

// AccountEventsTopic is the Kafka topic carrying account service events this
// service consumes.
const AccountEventsTopic = "account.events"
