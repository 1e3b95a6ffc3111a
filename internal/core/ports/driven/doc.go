// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Transport: Executes Graph requests (paths and continuation links)
//   - IdentityResolver: Turns principal ids into names and user types
//   - FamilyWalker: Enumerates one resource family
//   - LeafSource: Describes a leaf (fields, grants, content)
//   - ContentExtractor: Converts binary content to text
//   - FieldMapper: Evaluates per-field mapping expressions
//   - OutputSink: Receives finished records
//   - FailureLog: Receives per-item failures
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - RunStore: Crawl run history. Without it no history is kept.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or extractor package
package driven
