// Package models defines the core domain of tallyup.
//
// # Models
//
//   - ExpenseProject: the aggregate root, a named project with members and
//     expense records. All mutations go through its methods so that the
//     membership and amount invariants hold before anything is persisted.
//   - Member: a project participant, identified by name, with a split weight.
//   - ExpenseRecord: one expense, with a payer, an amount, and the set of
//     members who consumed it.
//
// # Change tracking
//
// An ExpenseProject carries an explicit ChangeSet describing how the
// in-memory instance relates to storage: a brand-new aggregate has intent
// IntentNew, a loaded one IntentUnchanged, and any mutation flips it to
// IntentUpdated together with per-collection dirty flags. The storage
// gateway dispatches on the ChangeSet and resets it after a successful save.
//
// # Design principles
//
//  1. Fail fast: every command validates before mutating, so a rejected
//     command never leaves partial state behind.
//  2. Read-only views: Members and Records return copies; callers cannot
//     reach the internal collections.
//  3. Derived values (totals, settlement) are recomputed on demand, never
//     cached.
package models
