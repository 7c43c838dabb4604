// Package models contains the GORM persistence models of the ledger tables.
// Domain aggregates carry no ORM tags; each model converts to and from its
// aggregate with ToDomain / FromDomain.
//
//   - base.go: identity, version and tenant columns shared by aggregates
//   - ledger.go: bank accounts, cash transactions, obligations, credits and closings
package models
