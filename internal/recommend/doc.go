// Package recommend converts findings into prioritized action items.
package recommend
