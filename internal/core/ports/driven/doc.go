// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Adapter: Produces documents from one local source
//   - AdapterFactory: Creates adapters from source descriptors
//   - Normaliser: Derives title and body from raw bytes
//   - NormaliserRegistry: Selects the appropriate normaliser
//   - IndexEngine: Per-source inverted index shards (SQLite)
//   - ManifestStore: What has been indexed, per source
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - FederationClient: Live search against a Kiwix server. Without it, only local sources are searched.
//   - LLMService: Answer synthesis. Without it, answers are always null.
//   - SchedulerStore: Persisted background task state.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
