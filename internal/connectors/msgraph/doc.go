// Package msgraph implements the Microsoft Graph side of the crawler.
//
// # Architecture
//
// The package provides the driven ports the crawl services consume:
//
//   - Paginator: walks one list call using @odata.nextLink as the cursor
//   - IdentityResolver: resolves user and group ids through run-scoped caches
//   - DriveWalker, NotebookWalker, SiteWalker, TeamWalker, ChatWalker: one
//     FamilyWalker per resource family, assembled by Walkers
//   - LeafSource: fields, grants and content of a discovered leaf
//   - Config: flat key/value configuration, exclusion lists and filters
//
// HTTP, authentication and throttling live in the graphhttp transport adapter;
// this package only speaks in request descriptors.
//
// # Errors
//
// Non-2xx responses surface as *APIError. APIError unwraps to the domain
// sentinels (ErrNotFound, ErrRateLimited, ErrUnavailable, ErrAccessDenied) so
// the core never inspects status codes. The paginator never retries; identity
// lookups retry a throttled call once after the server hint clamped to 2s..15s.
//
// # Resource families
//
//   - drive: users' OneDrives and site document libraries, folders recursed,
//     files are leaves, packages skipped
//   - notebook: OneNote notebooks of users and groups; the notebook is the leaf
//     and its pages are concatenated oldest first
//   - site: sites, subsites and lists; list items and modern pages are leaves
//   - team: teams, channels, channel messages and their replies
//   - chat: chats reached through their members, chat messages are leaves
//
// # Configuration
//
// Exclusion lists (exclude_sites, exclude_teams, exclude_lists) accept two
// formats. With a semicolon present each group is one id, commas included.
// Without one the value is split on commas. Matching is exact.
package msgraph
