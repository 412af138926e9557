// Package report renders a model.Report.
//
// Writers for three formats share the Writer interface:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter and FullJSONWriter: structured JSON for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown with tables, alerts and a
//     mermaid chart of category scores
//
// Writers only format; they never change the report.
package report
