package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmynk/housesplit/internal/config"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
	}{
		{
			name: "sqlite",
			cfg:  config.StoreConfig{Backend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "h.db")},
		},
		{
			name: "bolt",
			cfg:  config.StoreConfig{Backend: config.BackendBolt, BoltPath: filepath.Join(dir, "h.bolt")},
		},
		{
			name:    "unknown",
			cfg:     config.StoreConfig{Backend: "mysql"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer store.Close()

			list, err := store.ListExpenses(context.Background())
			if err != nil {
				t.Fatalf("ListExpenses failed: %v", err)
			}
			if len(list) != 0 {
				t.Errorf("new store has %d expenses", len(list))
			}
		})
	}
}
