// Package repository holds the SQL used by the services.
//
// Each repository returns pgx.ErrNoRows unchanged for a missing row so
// the service layer can decide which not-found message applies.
package repository
