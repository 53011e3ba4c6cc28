package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	dsn := DSN("daycare", "pw", "db", "3306", "cocobebe")

	assert.Contains(t, dsn, "daycare:pw@tcp(db:3306)/cocobebe?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}
