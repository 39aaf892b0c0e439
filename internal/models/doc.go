// Package models defines the core domain models for SplitTrack.
//
// # Models
//
//   - User: registered account; its email is the stable identity used everywhere else
//   - Group: named set of members who share expenses
//   - Member: identity plus a nickname that is only meaningful inside one group
//   - GroupExpense: one shared expense, split equally among its participants
//   - Expense: an entry in one user's personal ledger, never shared
//
// # Design Principles
//
// 1. **Identity over labels**: members are referenced by ID (email), never by nickname
// 2. **Immutable expenses**: an expense is written once and only read afterwards
// 3. **Exact money**: amounts are decimal.Decimal, never float64
// 4. **Avoid circular references**: Use ID strings instead of pointers for relationships
package models
