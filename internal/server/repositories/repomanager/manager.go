package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hushkey/internal/dbx"
	"github.com/dmitrijs2005/hushkey/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/hushkey/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so a service can hand
// repositories either the pooled connection or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
