// Package connectors holds the source-specific halves of the crawler.
// Each connector turns a remote API into the walker, leaf source and
// identity ports of the core; msgraph is the Microsoft Graph connector.
package connectors
