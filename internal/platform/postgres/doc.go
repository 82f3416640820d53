// Package postgres provides the PostgreSQL implementation of the store
// interfaces defined in internal/store. It also owns the connection pool
// setup, the pgconn error mapping and the embedded schema migrations that
// every database (production or ephemeral test database) is brought up with.
package postgres
