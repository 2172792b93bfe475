package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebelice/lazyadmin/internal/models"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name   string
		config models.ConnectionConfig
		want   string
	}{
		{
			name:   "defaults ssl mode",
			config: models.ConnectionConfig{Host: "localhost", Port: 5432, User: "app", Database: "shop"},
			want:   "host='localhost' port=5432 user='app' database='shop' sslmode='prefer'",
		},
		{
			name: "quotes password",
			config: models.ConnectionConfig{
				Host: "db", Port: 6543, User: "app", Database: "shop",
				SSLMode: "require", Password: `it's\secret`,
			},
			want: `host='db' port=6543 user='app' database='shop' sslmode='require' password='it\'s\\secret'`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildConnectionString(tt.config))
		})
	}
}
