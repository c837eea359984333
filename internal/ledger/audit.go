package ledger

import (
	"github.com/google/uuid"

	"fambudget/internal/core"
)

// StoredDeltas reports the per-entity balance contributions a stored
// transaction made when it was applied. The drift auditor sums these over
// a workspace's transactions and compares against the denormalized
// balances.
func StoredDeltas(t core.Transaction) (accounts, goals, debtors map[uuid.UUID]int64) {
	accounts = make(map[uuid.UUID]int64)
	goals = make(map[uuid.UUID]int64)
	debtors = make(map[uuid.UUID]int64)
	for _, d := range deltasFor(t, +1) {
		switch d.target {
		case targetAccount:
			accounts[d.id] += d.cents
		case targetGoal:
			goals[d.id] += d.cents
		case targetDebtor:
			debtors[d.id] += d.cents
		}
	}
	return accounts, goals, debtors
}
