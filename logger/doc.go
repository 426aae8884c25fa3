// Package logger provides structured logging built on zerolog.
//
// A process initialises the global logger once from configuration and every
// package then asks for a component-scoped child:
//
//	log := logger.Get("processing")
//	log.Info("stage completed", logger.Fields("transcription_id", 7, "stage", "transcribe"))
//
// Console output is meant for development; json is the production format.
package logger
