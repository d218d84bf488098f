package appcontext

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Urology-AI/data-manager/internal/filestore"
	"github.com/Urology-AI/data-manager/internal/ingest"
)

type Context struct {
	DB     *gorm.DB
	Logger *zap.Logger

	Files  filestore.Store
	Engine *ingest.Engine
}
