// Package model defines the core data structures used throughout telecheck.
//
// This package contains the following main types:
//   - PageRecord: A fetched page with extracted text, forms and images
//   - PageType: The label assigned to a page by the classifier
//   - Finding: A single potential compliance issue tied to one rule
//   - CategoryScore: The 0-100 score of one regulatory category
//   - Recommendation: A deduplicated action item built from findings
//   - Report: The result of one analysis run
//
// All types serialize to JSON for report output and history storage.
package model
