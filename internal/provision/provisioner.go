// Package provision creates the destination table and its fields for one
// import run. The remote service auto-creates a non-deletable primary field
// plus scaffold fields on table creation; the primary is renamed to the
// first mapped column (deleting it would leave an invalid schema) and the
// scaffolds are removed best-effort by a fixed denylist.
package provision

import (
	"context"
	"fmt"

	"github.com/timmy/gridport/internal/datastore"
	"github.com/timmy/gridport/internal/domain"
	"github.com/timmy/gridport/internal/logger"
)

// SchemaAPI is the slice of the datastore client the provisioner uses.
type SchemaAPI interface {
	CreateTable(ctx context.Context, bearer, name string) (*datastore.Table, error)
	DeleteTable(ctx context.Context, bearer, tableID string) error
	CreateField(ctx context.Context, bearer, tableID, name, fieldType string) (*datastore.Field, error)
	RenameField(ctx context.Context, bearer, tableID, fieldID, name string) error
	DeleteField(ctx context.Context, bearer, tableID, fieldID string) error
	ListFields(ctx context.Context, bearer, tableID string) ([]datastore.Field, error)
}

// CredentialSource runs a call with the elevated credential, retrying once
// after a 401.
type CredentialSource interface {
	WithRetry(ctx context.Context, call func(token string) error) error
}

// scaffoldDenylist names the default fields the service creates alongside
// the primary on a new table.
var scaffoldDenylist = map[string]bool{
	"Notes":       true,
	"Attachments": true,
	"Status":      true,
	"Options":     true,
	"Field 2":     true,
	"Field 3":     true,
}

// Provisioner creates destination schemas.
type Provisioner struct {
	api    SchemaAPI
	tokens CredentialSource
}

// New creates a Provisioner.
func New(api SchemaAPI, tokens CredentialSource) *Provisioner {
	return &Provisioner{api: api, tokens: tokens}
}

// Result is the outcome of one provisioning run.
type Result struct {
	TableID  string
	FieldMap domain.FieldMap
}

// Provision creates a table named tableName with one generic text field per
// mapped column, in column order, and returns the name to field-ID map. On
// a fatal failure after the table exists, the half-provisioned table is torn
// down best-effort so a retry starts clean.
func (p *Provisioner) Provision(ctx context.Context, tableName string, columns []string) (*Result, error) {
	if len(columns) == 0 {
		return nil, &domain.ProvisioningError{Step: "validate", Err: fmt.Errorf("no mapped columns")}
	}

	var table *datastore.Table
	err := p.tokens.WithRetry(ctx, func(token string) error {
		created, err := p.api.CreateTable(ctx, token, tableName)
		if err != nil {
			return err
		}
		table = created
		return nil
	})
	if err != nil {
		return nil, &domain.ProvisioningError{Step: "create_table", Err: err}
	}
	logger.CtxInfo(ctx, "Created table %s (%s) with %d scaffold fields", tableName, table.ID, len(table.Fields))

	result, err := p.provisionFields(ctx, table, columns)
	if err != nil {
		p.teardown(ctx, table.ID)
		return nil, err
	}
	return result, nil
}

func (p *Provisioner) provisionFields(ctx context.Context, table *datastore.Table, columns []string) (*Result, error) {
	primary := findPrimary(table.Fields)
	if primary == nil {
		return nil, &domain.ProvisioningError{Step: "find_primary", Err: fmt.Errorf("table %s has no primary field", table.ID)}
	}

	// The primary is reused for the first column, never deleted.
	err := p.tokens.WithRetry(ctx, func(token string) error {
		return p.api.RenameField(ctx, token, table.ID, primary.ID, columns[0])
	})
	if err != nil {
		return nil, &domain.ProvisioningError{Step: "rename_primary", Err: err}
	}

	// Scaffold removal is best-effort; a leftover default field is ugly but
	// not fatal.
	for _, f := range table.Fields {
		if f.ID == primary.ID || !scaffoldDenylist[f.Name] {
			continue
		}
		fieldID := f.ID
		err := p.tokens.WithRetry(ctx, func(token string) error {
			return p.api.DeleteField(ctx, token, table.ID, fieldID)
		})
		if err != nil {
			logger.CtxWarn(ctx, "Failed to delete scaffold field %s (%s): %v", f.Name, f.ID, err)
		}
	}

	for _, col := range columns[1:] {
		column := col
		err := p.tokens.WithRetry(ctx, func(token string) error {
			_, err := p.api.CreateField(ctx, token, table.ID, column, datastore.FieldTypeText)
			return err
		})
		if err != nil {
			return nil, &domain.ProvisioningError{Step: "create_field " + column, Err: err}
		}
	}

	var fields []datastore.Field
	err = p.tokens.WithRetry(ctx, func(token string) error {
		listed, err := p.api.ListFields(ctx, token, table.ID)
		if err != nil {
			return err
		}
		fields = listed
		return nil
	})
	if err != nil {
		return nil, &domain.ProvisioningError{Step: "list_fields", Err: err}
	}

	fieldMap := make(domain.FieldMap, len(fields))
	for _, f := range fields {
		fieldMap[f.Name] = f.ID
	}
	for _, col := range columns {
		if fieldMap[col] == "" {
			return nil, &domain.ProvisioningError{
				Step: "verify_fields",
				Err:  fmt.Errorf("%w: column %q", domain.ErrMissingFieldMapping, col),
			}
		}
	}

	return &Result{TableID: table.ID, FieldMap: fieldMap}, nil
}

// teardown deletes a half-provisioned table so retries are idempotent-safe.
func (p *Provisioner) teardown(ctx context.Context, tableID string) {
	err := p.tokens.WithRetry(ctx, func(token string) error {
		return p.api.DeleteTable(ctx, token, tableID)
	})
	if err != nil {
		logger.CtxWarn(ctx, "Failed to tear down table %s after provisioning failure: %v", tableID, err)
	}
}

func findPrimary(fields []datastore.Field) *datastore.Field {
	for i := range fields {
		if fields[i].IsPrimary {
			return &fields[i]
		}
	}
	return nil
}
