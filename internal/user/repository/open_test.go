package repository

import (
	"context"
	"testing"

	"user-account-service/internal/config"
)

func TestOpen_Errors(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.Config
	}{
		{"unknown driver", config.Config{StoreDriver: "sqlite"}},
		{"postgres without dsn", config.Config{StoreDriver: config.StorePostgres}},
		{"mongo without uri", config.Config{StoreDriver: config.StoreMongo}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, closer, err := Open(context.Background(), &tc.cfg)
			if err == nil {
				t.Fatal("Open should fail")
			}
			if repo != nil || closer != nil {
				t.Error("Open should return no repository or closer on error")
			}
		})
	}
}
