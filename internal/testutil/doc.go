// Package testutil contains fluent builders for task graphs and small
// assertions shared by tests. It is not intended for production usage.
package testutil
