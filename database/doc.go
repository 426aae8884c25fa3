// Package database provides the GORM connection used by the record, glossary
// and prompt stores: driver selection (sqlite or postgres), connection retry,
// pooling, a zerolog-backed gorm logger, transactions, error translation into
// AppError and a lifecycle component.
//
// Schema changes for postgres live in the migration subpackage as embedded
// SQL; sqlite databases (development and tests) use AutoMigrate.
package database
