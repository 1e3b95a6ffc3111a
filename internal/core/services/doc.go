// Package services implements the driving port interfaces.
// Services contain the crawl engine: the tree walker, the task dispatcher,
// the record builder, the permission aggregator and the stats tracker, and
// the orchestrator that wires them for one run.
//
// Services depend only on domain and the driven ports; Graph specifics live
// in the msgraph connector.
package services
