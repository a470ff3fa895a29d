package repomanager

import (
	"context"
	"database/sql"

	"github.com/securecloudx/securecloudx/internal/dbx"
	"github.com/securecloudx/securecloudx/internal/server/repositories/files"
	"github.com/securecloudx/securecloudx/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
}
