// Package pool shares a small number of native database sessions between many
// goroutines.
//
// A SimplePool owns up to capacity entries, each holding one resource and the
// context value created with it. Entries are created lazily; once the pool is
// full, Borrow parks the caller on the pool's Waiter until a handle is closed.
// There is no fairness between parked borrowers: the first free entry found in
// creation order wins.
//
// DoublePool splits access into a writer pool of capacity 1 and a reader pool
// of capacity N, matching SQLite's single-writer, many-reader WAL mode. In the
// Single topology both roles share one entry.
//
// Borrow blocks until an entry is free, the pool is closed, or the supplied
// context is done. With context.Background() it can block forever; there is no
// built-in timeout.
package pool
