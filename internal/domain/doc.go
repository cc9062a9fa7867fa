// Package domain defines the core business entities of the scheduling
// and session engine: cards with their memory state, decks, review
// sprints, and user notification profiles. Entities carry their own
// validation; all mutation of scheduling state goes through the fsrs
// subpackage.
package domain
