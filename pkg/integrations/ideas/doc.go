// Package ideas is the client for the architecture generation service.
//
// The service takes a free-text product idea and answers with typed nodes,
// edges and a monthly cost estimate:
//
//	POST {base}/idea
//	{"idea": "a realtime chat app"}
//
//	{"success": true, "data": {"projectName": "...",
//	  "architecture": {"nodes": [...], "edges": [...]},
//	  "cloudEstimation": {...}}}
//
// [Client.Generate] sends the request, normalizes the nested envelope into an
// [arch.Architecture] and caches it per idea. When a [TokenSource] yields a
// token it is sent as a bearer credential.
package ideas
