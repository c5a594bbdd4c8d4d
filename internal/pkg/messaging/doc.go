// Package messaging publishes and consumes events through a pluggable broker.
//
// Use cases depend on Publisher and Consumer only. Drivers are provided for
// NATS, NSQ, Kafka, Google Cloud Pub/Sub and an in-process broker used by
// single-instance deployments and tests. Headers travel with every driver; NSQ
// has no native headers, so its payload is wrapped in a small JSON envelope.
//
// Kafka consumers need a group and Pub/Sub consumers read the subscription
// named by the group. Both retry a failing handler in process up to the
// configured attempts and then acknowledge the message.
package messaging
