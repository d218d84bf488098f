package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/http/middleware"
)

type APIService struct {
	engine  *gin.Engine
	context *appcontext.Context
}

func NewHTTPService(ctx *appcontext.Context) *APIService {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORSMiddleware())

	service := &APIService{
		engine:  engine,
		context: ctx,
	}
	service.setupRoutes()
	return service
}

func (h *APIService) Engine() *gin.Engine {
	return h.engine
}

func (h *APIService) setupRoutes() {
	v1 := h.engine.Group("/api/v1")
	h.setupAuthRoutes(v1)
	h.setupFieldRoutes(v1)
	h.setupDatasetRoutes(v1)
	h.setupRecordRoutes(v1)
}

func (h *APIService) setupAuthRoutes(group *gin.RouterGroup) {
	auth := group.Group("/auth")

	auth.POST("/session", OpenSession(h.context))
}

func (h *APIService) setupFieldRoutes(group *gin.RouterGroup) {
	fields := group.Group("/fields")
	fields.Use(middleware.JWTAuthMiddleware())

	fields.GET("", GetCanonicalFields(h.context))
}

func (h *APIService) setupDatasetRoutes(group *gin.RouterGroup) {
	datasets := group.Group("/datasets")
	datasets.Use(middleware.JWTAuthMiddleware())

	datasets.POST("", UploadDataset(h.context))
	datasets.GET("", ListDatasets(h.context))
	datasets.GET("/:datasetID", GetDataset(h.context))
	datasets.DELETE("/:datasetID", DeleteDataset(h.context))
	datasets.GET("/:datasetID/columns", GetDatasetColumns(h.context))
	datasets.GET("/:datasetID/suggest-mappings", SuggestMappings(h.context))
	datasets.POST("/:datasetID/map", MapColumns(h.context))
	datasets.GET("/:datasetID/raw-data", GetRawData(h.context))
	datasets.GET("/:datasetID/reprocess-check", ReprocessCheck(h.context))
	datasets.POST("/:datasetID/reprocess-update", ReprocessUpdate(h.context))
	datasets.POST("/:datasetID/promote-unmapped", PromoteUnmapped(h.context))
}

func (h *APIService) setupRecordRoutes(group *gin.RouterGroup) {
	records := group.Group("/records")
	records.Use(middleware.JWTAuthMiddleware())

	records.POST("", CreateRecord(h.context))
	records.GET("/all", ListAllRecords(h.context))
	records.PATCH("/bulk-update", BulkUpdateRecords(h.context))
	records.GET("/dataset/:datasetID", ListRecords(h.context))
	records.GET("/dataset/:datasetID/missingness", GetMissingness(h.context))
	records.POST("/upload-file", UploadRecordsFile(h.context))
	records.GET("/custom-fields/:datasetID", GetCustomFields(h.context))
	records.POST("/custom-fields/:datasetID", AddCustomField(h.context))
	records.DELETE("/custom-fields/:datasetID", RemoveCustomField(h.context))
	records.GET("/:recordID", GetRecord(h.context))
	records.PATCH("/:recordID", UpdateRecord(h.context))
}
