package lifecycle

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-lifecycle/internal/item"
	"github.com/goliatone/go-lifecycle/internal/policy"
)

// Migrate creates the scheduler tables when they do not exist yet. Hosts with
// their own migration pipeline can skip this and manage the schema themselves.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*item.Item)(nil),
		(*item.Translation)(nil),
		(*policy.Record)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create scheduler table for %T: %w", model, err)
		}
	}
	return nil
}
