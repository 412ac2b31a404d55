package models_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacentio/docbind/driver/boltstore"
	"github.com/jacentio/docbind/logging"
	"github.com/jacentio/docbind/models"
	"github.com/jacentio/docbind/store"
)

func newConn(t *testing.T) *store.Connection {
	t.Helper()
	client, err := boltstore.Open(filepath.Join(t.TempDir(), "models.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return store.NewWithClient(client, store.WithLogger(logging.Nop()))
}

func TestCustomerRecord_Location(t *testing.T) {
	loc := models.CustomerRecord{}.Location()
	assert.Equal(t, store.Location{Database: "Customers", Container: "Customer"}, loc)
}

func TestNewCustomer(t *testing.T) {
	c := models.NewCustomer("c1", models.NewCustomersPartition, "Steve", "1 Main Street")
	assert.Equal(t, "c1", c.DocumentID())
	assert.Equal(t, "newCustomers", c.PartitionKeyValue())
	assert.Equal(t, "Steve", c.Name)
	assert.True(t, c.LastModifiedTime.IsZero())
}

func TestFindCustomerByAddress(t *testing.T) {
	conn := newConn(t)
	ctx := context.Background()

	for _, c := range []models.CustomerRecord{
		models.NewCustomer("c1", models.NewCustomersPartition, "Steve", "1 Main Street"),
		models.NewCustomer("c2", models.NewCustomersPartition, "Larry", "1 Main Street"),
		models.NewCustomer("c3", "oldCustomers", "Moe", "2 Side Street"),
	} {
		_, err := store.UpsertItem(ctx, conn, &c)
		require.NoError(t, err)
	}

	found, err := models.FindCustomerByAddress(ctx, conn, "1 Main Street")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = models.FindCustomerByAddress(ctx, conn, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestFindCustomerByName(t *testing.T) {
	conn := newConn(t)
	ctx := context.Background()

	for _, c := range []models.CustomerRecord{
		models.NewCustomer("c1", models.NewCustomersPartition, "Steve", "1 Main Street"),
		models.NewCustomer("c2", models.NewCustomersPartition, "Larry", "1 Main Street"),
	} {
		_, err := store.UpsertItem(ctx, conn, &c)
		require.NoError(t, err)
	}

	found, err := models.FindCustomerByName(ctx, conn, "Steve")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "c1", found.ID)
	assert.Equal(t, "1 Main Street", found.Address1)

	missing, err := models.FindCustomerByName(ctx, conn, "Moe")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindCustomersByQuery_UnsupportedDriverFailsSoft(t *testing.T) {
	conn := newConn(t)
	ctx := context.Background()

	c := models.NewCustomer("c1", models.NewCustomersPartition, "Steve", "1 Main Street")
	_, err := store.UpsertItem(ctx, conn, &c)
	require.NoError(t, err)

	found, err := models.FindCustomersByQuery(ctx, conn, "Steve")
	require.NoError(t, err)
	assert.Empty(t, found)
}
