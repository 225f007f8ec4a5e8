package repomanager

import (
	"context"
	"database/sql"

	"github.com/Vraj260105/Block-Vote/internal/dbx"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/accounts"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/passcodes"
	"github.com/Vraj260105/Block-Vote/internal/server/repositories/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Passcodes(db dbx.DBTX) passcodes.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
