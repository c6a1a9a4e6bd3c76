// Package core provides the foundational types shared by the reasoning loop,
// the tool layer and the stream relay:
//
//   - Content / Part (role-based conversation segments incl. tool calls)
//   - Message (one entry of the client supplied chat history)
//   - StepLimiter (per-turn reasoning budget)
//   - ToolContext (scoped access to the graph store for a single tool call)
//
// Concrete reasoning backends, transports and tools live in sibling packages
// and depend on core, never the other way around.
package core
