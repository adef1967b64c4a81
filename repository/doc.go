// Package repository provides a generic repository built on Bun: CRUD,
// relation scoped lookups, predicate filtering and pagination over one
// entity type. Sessions come from a database.UnitOfWork, so a repository
// joins whatever transaction the caller's context carries.
package repository
