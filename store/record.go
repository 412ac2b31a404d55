package store

import (
	"fmt"
	"time"
)

// Location identifies a container: the database it lives in and its name.
type Location struct {
	Database  string
	Container string
}

// Valid reports whether both names are set.
func (l Location) Valid() bool {
	return l.Database != "" && l.Container != ""
}

// String returns "database/container".
func (l Location) String() string {
	return fmt.Sprintf("%s/%s", l.Database, l.Container)
}

// Locator is implemented by record types that declare their container.
// Location must return a constant and must be callable on the zero value.
type Locator interface {
	Location() Location
}

// Record is the base interface for all storable types.
// Embedding Document in a struct makes a pointer to it a Record.
type Record interface {
	// DocumentID returns the id, unique within the container.
	DocumentID() string

	// PartitionKeyValue returns the partition key used for point operations.
	PartitionKeyValue() string

	// Touch stamps the last-modified time. Called by the store on every write.
	Touch(t time.Time)
}

// RecordPointer constrains the type parameters of the generic operations:
// P is *T and implements Record.
type RecordPointer[T any] interface {
	*T
	Record
}

// Document carries the fields every record has.
type Document struct {
	ID               string    `json:"id"`
	PartitionKey     string    `json:"partitionKey"`
	LastModifiedTime time.Time `json:"lastModifiedTime"`
}

func (d *Document) DocumentID() string        { return d.ID }
func (d *Document) PartitionKeyValue() string { return d.PartitionKey }
func (d *Document) Touch(t time.Time)         { d.LastModifiedTime = t }
