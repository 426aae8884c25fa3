// Package kafka publishes transcription lifecycle events to a Kafka topic
// with segmentio/kafka-go.
//
// Each event is written as JSON keyed by the transcription id, so every
// transition of one record lands on the same partition in order.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  topic: stenopro.transcriptions
package kafka
