package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017", DefaultDatabase},
		{"mongodb://localhost:27017/chat", "chat"},
		{"mongodb://u:p@db1,db2/chat?replicaSet=rs0", "chat"},
		{"not a uri", DefaultDatabase},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DatabaseName(tt.uri), tt.uri)
	}
}
