// Package arch provides the architecture record produced by the generation
// service: typed nodes, directed edges and a cloud-cost estimate.
//
// This package defines the canonical wire format for archflow's input data,
// used for JSON files, API requests, caching, and the generation-service
// response envelope.
//
// # Core Types
//
//   - [Architecture]: Project name, nodes, edges and cost estimate
//   - [Node], [Edge]: Structural records
//   - [CloudCost]: Pre-computed monthly cost breakdown (passed through as-is)
//   - [IdeaResponse]: Nested envelope returned by POST /idea
//
// # Node Types
//
// Node types come from a fixed enumeration used for styling and initial
// placement only:
//
//	arch.TypeFrontend  // "frontend"
//	arch.TypeCloud     // "cloud"
//	arch.TypeBackend   // "backend"
//	arch.TypeDatabase  // "database"
//	arch.TypeCache     // "cache"
//	arch.TypeQueue     // "queue"
//	arch.TypeStorage   // "storage"
//	arch.TypeExternal  // "external"
//
// An empty type is treated as [TypeBackend] by [Node.EffectiveType]. Unknown
// types are kept verbatim; consumers decide their defaults.
//
// # Serialization
//
//	{
//	  "projectName": "Chat",
//	  "nodes": [{"id": "web", "label": "Web", "type": "frontend", "service": "React", "provider": "Vercel"}],
//	  "edges": [{"source": "web", "target": "api"}],
//	  "cloudEstimation": {"Compute": "$180", "EstimatedMonthlyCost": "$650"}
//	}
//
// Use [ReadFile], [Write] and [Marshal] for IO. [Architecture.Validate] checks
// identifier uniqueness and edge referential integrity.
package arch
