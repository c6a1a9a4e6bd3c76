// Package graph holds the task-breakdown graph: task nodes connected by
// parent→child links forming a forest, plus the Store that applies the
// create / edit / update-status / delete operations issued by tools.
//
// A Data value is owned by exactly one request. The Store mutates it in place
// from a single goroutine; readers on other goroutines only ever receive deep
// copies obtained through Data.Clone or Store.Snapshot.
package graph
