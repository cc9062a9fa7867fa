// Package store provides abstractions for data persistence: the entity
// store interfaces consumed by the service layer, the DBTX abstraction
// over connections and transactions, and the RunInTransaction helper
// that gives every mutating service operation its atomic unit.
package store
