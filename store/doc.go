// Package store maps typed records onto document-database containers.
//
// A Connection owns one Client and a cache of container bindings. Every
// operation is a generic function parameterized by the record type; the type
// determines the (database, container) pair, which is opened once and reused.
//
// # Record Types
//
// Records embed [Document] and declare their container either with a
// [Locator] method:
//
//	type CustomerRecord struct {
//	    store.Document
//	    Name string `json:"name"`
//	}
//
//	func (CustomerRecord) Location() store.Location {
//	    return store.Location{Database: "Customers", Container: "Customer"}
//	}
//
// or by registration, typically from init():
//
//	store.Register[AuditRecord](store.DefaultRegistry, store.Location{Database: "Ops", Container: "Audit"})
//
// # Operations
//
//	store.QueryItems[T](ctx, conn, query)       // nil query selects everything
//	store.ScanByPredicate[T](ctx, conn, where)  // filter.Expr, translated by the driver
//	store.UpsertItem(ctx, conn, &record)        // one retry after the retry delay
//	store.DeleteRecord(ctx, conn, &record)
//	store.DeleteAllInContainer[T](ctx, conn)
//
// Reads fail soft: a query that fails while paging is logged and returns an
// empty slice. Writes fail hard: an upsert that fails twice returns the error.
//
// # Clients
//
// [New] builds the client through a [Driver] from a [Config]. The key path
// wins over an endpoint with an embedded AccountKey=, which wins over a
// resource id exchanged for a key through a [KeyFetcher]. [NewWithClient]
// accepts a ready client.
//
// # Errors
//
//   - [ErrConfiguration] - no usable credential path, or the driver rejected it
//   - [ErrCredential] - the key could not be fetched for the resource id
//   - [ErrResolution] - the record type declares no container, or it could not be opened
//   - [ErrUnsupportedQuery] - the driver cannot run the query text
package store
