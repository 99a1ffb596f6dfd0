package domain

import amqp "github.com/rabbitmq/amqp091-go"

// JobMessage asks the worker to advance one job
type JobMessage struct {
	HashName    string `json:"hash_name"`
	DeliveryTag uint64 `json:"-"`

	// Acknowledger settles the broker delivery; nil for jobs scheduled in-process
	Acknowledger amqp.Acknowledger `json:"-"`
}
