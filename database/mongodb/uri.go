package mongodb

import (
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// databaseFromURI returns the database named in the URI path, or
// DefaultDatabaseName when there is none.
func databaseFromURI(uri string) string {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil || cs.Database == "" {
		return DefaultDatabaseName
	}
	return cs.Database
}
