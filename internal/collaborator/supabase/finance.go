package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/supabase-community/postgrest-go"

	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
)

const transactionsTable = "transactions"

// Finance stores transactions in the transactions table.
type Finance struct {
	client *Client
}

var _ dispatch.Finance = (*Finance)(nil)

// NewFinance creates the finance collaborator.
func NewFinance(c *Client) *Finance {
	return &Finance{client: c}
}

type transactionRow struct {
	ID            string      `json:"id,omitempty"`
	FamilyID      string      `json:"family_id"`
	Type          string      `json:"type"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
	Category      string      `json:"category,omitempty"`
	Date          string      `json:"date"`
	PaymentMethod string      `json:"payment_method"`
}

// CreateTransaction implements dispatch.Finance.
func (f *Finance) CreateTransaction(ctx context.Context, in dispatch.TransactionInput) (string, error) {
	row := transactionRow{
		FamilyID:      in.FamilyID,
		Type:          string(in.Type),
		Amount:        json.Number(in.Amount.String()),
		Description:   in.Description,
		Category:      in.Category,
		Date:          in.Date.String(),
		PaymentMethod: string(in.PaymentMethod),
	}

	var created []idRow
	err := f.client.query(ctx, "insert", transactionsTable, &created, func(q *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return q.Insert(row, false, "", "representation", "")
	})
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	if len(created) == 0 {
		return "", errors.New("create transaction: no row returned")
	}
	return created[0].ID, nil
}

type idRow struct {
	ID string `json:"id"`
}
