// Package processing drives a transcription record through its lifecycle:
// uploading, transcribing, correcting, then ready or error.
//
// The Orchestrator runs one record at a time under a per-record lock and
// writes each stage with the record's optimistic version, so a run that
// lost a race stops without overwriting newer state. The Dispatcher detaches
// runs onto a bounded set of background workers.
//
// Every failure inside a run is caught once, classified into a Kind and
// persisted on the record. Only a missing record is reported to the caller.
package processing
