// Package report holds the incident report lifecycle: the status state machine,
// the enumerated report fields, multi-step submission validation, sparse edits,
// and the role-aware projection used when a report leaves the service.
//
// # Lifecycle
//
//	pending ──► in_review ──► resolved
//	   │  ▲         │  ▲          │
//	   │  └─────────┘  └──────────┤ (reopen)
//	   └──────► rejected ◄────────┘
//
// Every status change goes through [Transition]. A same-status request is a
// no-op, anything not listed in the table fails with [ErrInvalidTransition].
//
// # What this package must NOT do
//
//   - Touch the database, Redis, or the network.
//   - Decide who is allowed to call an operation. Callers pass a [Viewer]
//     that already carries the permission outcome.
package report
