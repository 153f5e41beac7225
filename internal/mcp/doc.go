// Package mcp exposes a document corpus as MCP tools.
//
// Three read-only tools are registered on a go-sdk server:
//
//	list_documents    every readable document under the root
//	read_document     one document, truncated to a character budget
//	search_documents  case-insensitive substring search with snippets
//
// Access outside the root is a tool error. A missing or unreadable file is
// a normal result carrying a short message, so the agent can recover.
package mcp
