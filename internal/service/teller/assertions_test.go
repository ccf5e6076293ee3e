package teller

import (
	"github.com/tinoosan/atmledger/internal/cashpool"
	"github.com/tinoosan/atmledger/internal/storage/file"
	"github.com/tinoosan/atmledger/internal/storage/memory"
	"github.com/tinoosan/atmledger/internal/storage/postgres"
)

// Compile-time checks that each backend satisfies the interfaces the service consumes.
var (
	_ AccountStore = (*memory.Store)(nil)
	_ CashPool     = (*cashpool.Pool)(nil)

	_ Snapshots = (*file.Snapshots)(nil)
	_ AuditLog  = (*file.AuditLog)(nil)
	_ Snapshots = (*postgres.Store)(nil)
	_ AuditLog  = (*postgres.Store)(nil)
)
