// Package models holds the record types used by the docbind command.
package models

import (
	"context"

	"github.com/jacentio/docbind/filter"
	"github.com/jacentio/docbind/store"
)

// Container of customer records.
const (
	CustomersDatabase  = "Customers"
	CustomersContainer = "Customer"
)

// NewCustomersPartition is the partition the demo writes to.
const NewCustomersPartition = "newCustomers"

// CustomerRecord is a customer document.
type CustomerRecord struct {
	store.Document
	Name     string `json:"name"`
	Address1 string `json:"address1"`
}

func (CustomerRecord) Location() store.Location {
	return store.Location{Database: CustomersDatabase, Container: CustomersContainer}
}

// NewCustomer returns a customer in partitionKey.
func NewCustomer(id, partitionKey, name, address1 string) CustomerRecord {
	return CustomerRecord{
		Document: store.Document{ID: id, PartitionKey: partitionKey},
		Name:     name,
		Address1: address1,
	}
}

// FindCustomerByName returns the first customer named name, or nil when
// there is none.
func FindCustomerByName(ctx context.Context, conn *store.Connection, name string) (*CustomerRecord, error) {
	found, err := store.ScanByPredicate[CustomerRecord](ctx, conn, filter.Eq("name", name))
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// FindCustomersByQuery runs Cosmos SQL text selecting customers named name.
// Other drivers do not accept this dialect and yield an empty result.
func FindCustomersByQuery(ctx context.Context, conn *store.Connection, name string) ([]CustomerRecord, error) {
	q := store.NewQuery("SELECT * FROM c WHERE c.name = @name", store.Parameter{Name: "@name", Value: name})
	return store.QueryItems[CustomerRecord](ctx, conn, q)
}

// FindCustomerByAddress returns the customers at address1, using a predicate.
func FindCustomerByAddress(ctx context.Context, conn *store.Connection, address1 string) ([]CustomerRecord, error) {
	return store.ScanByPredicate[CustomerRecord](ctx, conn, filter.Eq("address1", address1))
}
