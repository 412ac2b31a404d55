package dynamo

// Config holds the table layout used by the DynamoDB driver.
type Config struct {
	// PartitionKeyAttr is the hash key attribute.
	// Default: "partitionKey"
	PartitionKeyAttr string

	// IDAttr is the range key attribute.
	// Default: "id"
	IDAttr string

	// TableName maps a store location to a table name.
	// Default: the container name.
	TableName func(database, container string) string
}

// DefaultConfig returns the layout matching store.Document's JSON fields.
func DefaultConfig() Config {
	return Config{
		PartitionKeyAttr: "partitionKey",
		IDAttr:           "id",
		TableName:        ContainerTable,
	}
}

// ContainerTable names the table after the container.
func ContainerTable(_, container string) string { return container }

// PrefixedTable names the table "<prefix><container>".
func PrefixedTable(prefix string) func(database, container string) string {
	return func(_, container string) string { return prefix + container }
}

// validate fills unset fields with defaults.
func (c *Config) validate() {
	if c.PartitionKeyAttr == "" {
		c.PartitionKeyAttr = "partitionKey"
	}
	if c.IDAttr == "" {
		c.IDAttr = "id"
	}
	if c.TableName == nil {
		c.TableName = ContainerTable
	}
}
