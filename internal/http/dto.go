package http

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fambudget/internal/core"
	"fambudget/internal/ledger"
)

// Response DTOs. Monetary amounts travel as decimal strings ("12.50");
// raw running balances additionally expose cents because they can be
// negative and clients chart them.

// dateLayouts are the accepted wire formats for date fields, tried in
// order. Clients send either a full RFC 3339 timestamp or a plain date.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate parses an optional request date field. Empty means unset; the
// engine defaults unset dates. Anything unparseable is a validation error
// on the named field, not a malformed request.
func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: %w", field, core.ErrInvalidDate)
}

type accountDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Currency     string    `json:"currency"`
	Balance      string    `json:"balance"`
	BalanceCents int64     `json:"balanceCents"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toAccountDTO(a core.Account) accountDTO {
	return accountDTO{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Currency:     a.Currency,
		Balance:      core.CentsString(a.BalanceCents),
		BalanceCents: a.BalanceCents,
		Archived:     a.Archived,
		CreatedAt:    a.CreatedAt,
	}
}

type categoryDTO struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Kind      core.CategoryKind `json:"kind"`
	Icon      string            `json:"icon,omitempty"`
	Budget    *string           `json:"budget,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func toCategoryDTO(c core.Category) categoryDTO {
	dto := categoryDTO{
		ID:        c.ID,
		Name:      c.Name,
		Kind:      c.Kind,
		Icon:      c.Icon,
		CreatedAt: c.CreatedAt,
	}
	if c.BudgetCents != nil {
		s := core.CentsString(*c.BudgetCents)
		dto.Budget = &s
	}
	return dto
}

type incomeSourceDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toIncomeSourceDTO(s core.IncomeSource) incomeSourceDTO {
	return incomeSourceDTO{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
}

type goalDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Icon        string          `json:"icon,omitempty"`
	Target      string          `json:"target"`
	Current     string          `json:"current"`
	Status      core.GoalStatus `json:"status"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toGoalDTO(g core.Goal) goalDTO {
	return goalDTO{
		ID:          g.ID,
		Name:        g.Name,
		Icon:        g.Icon,
		Target:      core.CentsString(g.TargetCents),
		Current:     core.CentsString(g.CurrentCents),
		Status:      g.Status,
		CompletedAt: g.CompletedAt,
		CreatedAt:   g.CreatedAt,
	}
}

type debtorDTO struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Icon      string             `json:"icon,omitempty"`
	Direction core.DebtDirection `json:"direction"`
	Principal string             `json:"principal"`
	Paid      string             `json:"paid"`
	Payoff    *string            `json:"payoff,omitempty"`
	IssuedAt  time.Time          `json:"issuedAt"`
	DueAt     *time.Time         `json:"dueAt,omitempty"`
	Status    core.DebtorStatus  `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}

func toDebtorDTO(d core.Debtor) debtorDTO {
	dto := debtorDTO{
		ID:        d.ID,
		Name:      d.Name,
		Icon:      d.Icon,
		Direction: d.Direction,
		Principal: core.CentsString(d.PrincipalCents),
		Paid:      core.CentsString(d.PaidCents),
		IssuedAt:  d.IssuedAt,
		DueAt:     d.DueAt,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
	}
	if d.PayoffCents != nil {
		s := core.CentsString(*d.PayoffCents)
		dto.Payoff = &s
	}
	return dto
}

type transactionDTO struct {
	ID         uuid.UUID             `json:"id"`
	Kind       core.TransactionKind  `json:"kind"`
	Shape      core.TransactionShape `json:"shape"`
	Amount     core.Amount           `json:"amount"`
	HappenedAt time.Time             `json:"happenedAt"`
	Note       string                `json:"note,omitempty"`
	DebtIssue  bool                  `json:"debtIssue,omitempty"`
	References transactionRefsDTO    `json:"references"`
	Names      core.TransactionNames `json:"names"`
	CreatedAt  time.Time             `json:"createdAt"`
}

type transactionRefsDTO struct {
	AccountID      *uuid.UUID `json:"accountId,omitempty"`
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	IncomeSourceID *uuid.UUID `json:"incomeSourceId,omitempty"`
	FromAccountID  *uuid.UUID `json:"fromAccountId,omitempty"`
	ToAccountID    *uuid.UUID `json:"toAccountId,omitempty"`
	GoalID         *uuid.UUID `json:"goalId,omitempty"`
	DebtorID       *uuid.UUID `json:"debtorId,omitempty"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:         t.ID,
		Kind:       t.Kind,
		Shape:      t.Shape,
		Amount:     t.Amount,
		HappenedAt: t.HappenedAt,
		Note:       t.Note,
		DebtIssue:  t.DebtIssue,
		References: transactionRefsDTO{
			AccountID:      t.Refs.AccountID,
			CategoryID:     t.Refs.CategoryID,
			IncomeSourceID: t.Refs.IncomeSourceID,
			FromAccountID:  t.Refs.FromAccountID,
			ToAccountID:    t.Refs.ToAccountID,
			GoalID:         t.Refs.GoalID,
			DebtorID:       t.Refs.DebtorID,
		},
		Names:     t.Names,
		CreatedAt: t.CreatedAt,
	}
}

type workspaceDTO struct {
	ID        uuid.UUID          `json:"id"`
	Type      core.WorkspaceType `json:"type"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"createdAt"`
}

func toWorkspaceDTO(w core.Workspace) workspaceDTO {
	return workspaceDTO{ID: w.ID, Type: w.Type, Name: w.Name, CreatedAt: w.CreatedAt}
}

type overviewDTO struct {
	Accounts []accountDTO `json:"accounts"`
	Goals    []goalDTO    `json:"goals"`
	Debtors  []debtorDTO  `json:"debtors"`
}

func toOverviewDTO(o ledger.Overview) overviewDTO {
	dto := overviewDTO{
		Accounts: make([]accountDTO, 0, len(o.Accounts)),
		Goals:    make([]goalDTO, 0, len(o.Goals)),
		Debtors:  make([]debtorDTO, 0, len(o.Debtors)),
	}
	for _, a := range o.Accounts {
		dto.Accounts = append(dto.Accounts, toAccountDTO(a))
	}
	for _, g := range o.Goals {
		dto.Goals = append(dto.Goals, toGoalDTO(g))
	}
	for _, d := range o.Debtors {
		dto.Debtors = append(dto.Debtors, toDebtorDTO(d))
	}
	return dto
}
