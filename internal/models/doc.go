// Package models defines the core domain models for housesplit.
//
// # Models
//
//   - Expense: one shared household expense, fronted by one participant and
//     shared by a set of participants (the payer may or may not be one of them)
//   - Roster: the fixed, configured list of household members
//   - PersonBalance: derived per-person balance with its contributing line items
//   - PayoutCard: the card number a participant wants to be paid back on
//
// Amounts are carried as Money, an integer count of minor currency units, so
// that allocations sum back to the original amount exactly.
//
// # Design Principles
//
//  1. **Records are immutable**: an Expense is created once and deleted, never edited
//  2. **Balances are projections**: PersonBalance is recomputed from the full expense
//     set every time and is never persisted
//  3. **Participants are plain ids**: roster members are identified by name strings
//  4. **Roster is configuration**: nothing here holds a package-level participant list
package models
