// Package models defines the core domain models for Tripledger.
//
// # Model Overview
//
//   - Trip: a shared journey that owns members, expenses and settlements
//   - TripMember: one user's participation record within a trip
//   - TripInvite: a single-use token for joining a trip
//   - Expense: money fronted by one member, split across weighted shares
//   - ExpenseShare: a member's proportional claim on one expense
//   - Settlement: a directed repayment between two members
//   - ExchangeRate: a cached (currency, date) -> rate-to-home fact
//
// # Design Principles
//
//  1. All monetary values use shopspring/decimal, never float64. Amounts
//     carry 2 fractional digits, exchange rates 6.
//  2. Relationships are expressed through ID strings, not pointers, to
//     avoid circular references between models.
//  3. Models are plain data. Validation and state transitions live in the
//     service and storage layers.
package models
