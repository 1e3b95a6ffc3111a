// Package domain defines the core crawl entities for sercha-graph.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - ResourceHandle: A discovered leaf resource and the path that led to it
//   - Page: One batch of a cursor-paginated collection
//   - PrincipalRef / Grant: Raw permission grants as returned upstream
//   - OutputRecord: The flat field map handed to the output sink
//   - ExclusionList: Parsed branch-root exclusion configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
