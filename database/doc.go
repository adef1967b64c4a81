// Package database provides connection management, context-bound
// transactions, schema bootstrap, foreign key handling, SQL seeding,
// error classification, query logging and health checks built on Bun.
//
// Repositories reach the store through a UnitOfWork: CurrentSession returns
// the bun.Tx bound to the caller's context by TxManager.Execute, or the
// pooled bun.DB when no transaction is active.
package database
