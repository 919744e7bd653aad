package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const recordsTable = "filing_records"

var (
	recordsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "session_id", Type: field.TypeString, Size: 64},
		{Name: "position", Type: field.TypeInt},
		{Name: "document_id", Type: field.TypeString, Size: 512},
		{Name: "filer_code", Type: field.TypeString, Size: 512},
		{Name: "filing_date", Type: field.TypeString, Size: 256},
		{Name: "category", Type: field.TypeString, Size: 256},
		{Name: "fined_amount", Type: field.TypeString, Size: 256},
		{Name: "upload_date", Type: field.TypeString, Size: 64},
		{Name: "stored_at", Type: field.TypeString, Size: 40},
	}
	recordsTableDef = &schema.Table{
		Name:       recordsTable,
		Columns:    recordsColumns,
		PrimaryKey: []*schema.Column{recordsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "filingrecord_session_id", Columns: []*schema.Column{recordsColumns[1]}},
			{Name: "filingrecord_stored_at_position", Columns: []*schema.Column{recordsColumns[9], recordsColumns[2]}},
		},
	}
	tables = []*schema.Table{recordsTableDef}
)

// Migrate creates or updates the tables the record store needs. Columns are
// never dropped.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("ent/migrate: create tables: %w", err)
	}
	return nil
}
