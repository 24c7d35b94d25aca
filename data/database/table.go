package database

// Table is implemented by every persisted model; the name doubles as the
// Mongo collection and the SQL table.
type Table interface {
	GetTableName() string
}
