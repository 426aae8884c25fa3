// Package storage stores uploaded audio blobs behind a small key/value
// interface with pluggable backends.
//
// # Backends
//
//   - storage/local: a directory on disk (default ./uploads)
//   - storage/s3: Amazon S3 and S3-compatible services
//
// Backends register a factory on import; [New] picks one by Config.Provider:
//
//	storage:
//	  provider: s3
//	  s3:
//	    bucket: stenopro-audio
//	    region: sa-east-1
//
// Audio blobs are named by [AudioKey]: "<unix-millis>_<sanitized name>".
package storage
