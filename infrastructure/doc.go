// Package infrastructure adapts the domain interfaces to concrete backends:
// gin handlers and middleware, SQL storage for Postgres and SQLite, file storage
// on disk or S3, and task queues on RabbitMQ or SQS.
package infrastructure
