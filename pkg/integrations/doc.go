// Package integrations provides the shared HTTP plumbing for external API
// clients.
//
// # Overview
//
// Each external service has its own subpackage:
//
//   - [ideas]: the architecture generation service (POST /idea)
//
// # Client Pattern
//
// Service clients embed a [Client], which handles:
//   - JSON request and response bodies
//   - Default and per-request headers (bearer credentials)
//   - Mapping transport failures and HTTP statuses to [errors.Code] values
//   - Response caching through [cache.Cache]
//   - HTTP hooks from the observability package
//
// Requests are never retried. A failure is reported once, with a code the
// CLI and the HTTP API can display.
//
// [ideas]: github.com/matzehuels/archflow/pkg/integrations/ideas
// [errors.Code]: github.com/matzehuels/archflow/pkg/errors.Code
// [cache.Cache]: github.com/matzehuels/archflow/pkg/cache.Cache
package integrations
