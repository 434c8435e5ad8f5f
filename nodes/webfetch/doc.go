// Package webfetch provides a prebuilt workflow node that fetches a web
// page and merges its content into the graph state as Markdown.
package webfetch
