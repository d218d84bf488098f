package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/entity"
	"github.com/Urology-AI/data-manager/internal/ingest"
	"github.com/Urology-AI/data-manager/internal/schema"
	"github.com/Urology-AI/data-manager/internal/utils"
)

type columnMappingRequest struct {
	ColumnMap             map[string]string `json:"column_map"`
	CreateExtensionFields map[string]string `json:"create_extension_fields"`
}

// sessionDatasetFromRequest resolves the :datasetID parameter against the
// caller's session, writing the error response itself on failure.
func sessionDatasetFromRequest(ctx *appcontext.Context, c *gin.Context) (*entity.Dataset, bool) {
	sessionID, err := utils.GetSessionIDFromClaims(c)
	if err != nil {
		ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
		return nil, false
	}

	datasetID, err := uuid.Parse(c.Param("datasetID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dataset ID"})
		return nil, false
	}

	dataset, err := utils.SessionDataset(ctx, sessionID, datasetID)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrDatasetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
		case errors.Is(err, utils.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		default:
			ctx.Logger.Error("Failed to get dataset from database", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get dataset from database"})
		}
		return nil, false
	}
	return dataset, true
}

// datasetHeaders opens the stored source file and extracts its header row.
func datasetHeaders(ctx *appcontext.Context, c *gin.Context, dataset *entity.Dataset) ([]string, bool) {
	rc, err := ctx.Files.Open(c.Request.Context(), dataset.StoredPath)
	if err != nil {
		ctx.Logger.Error("Failed to open stored file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open stored file"})
		return nil, false
	}
	defer rc.Close()

	headers, err := ingest.ReadHeaders(dataset.StoredPath, rc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return headers, true
}

// datasetRows opens the stored source file and extracts headers and rows.
func datasetRows(ctx *appcontext.Context, c *gin.Context, dataset *entity.Dataset) ([]string, []ingest.Row, bool) {
	rc, err := ctx.Files.Open(c.Request.Context(), dataset.StoredPath)
	if err != nil {
		ctx.Logger.Error("Failed to open stored file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open stored file"})
		return nil, nil, false
	}
	defer rc.Close()

	headers, rows, err := ingest.ReadRows(dataset.StoredPath, rc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, false
	}
	return headers, rows, true
}

func datasetRecords(ctx *appcontext.Context, c *gin.Context, dataset *entity.Dataset) ([]*entity.Record, bool) {
	var records []*entity.Record
	if err := ctx.DB.Where("dataset_id = ?", dataset.ID).Find(&records).Error; err != nil {
		ctx.Logger.Error("Failed to load records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load records"})
		return nil, false
	}
	return records, true
}

func recordCount(ctx *appcontext.Context, datasetID uuid.UUID) int64 {
	var count int64
	ctx.DB.Model(&entity.Record{}).Where("dataset_id = ?", datasetID).Count(&count)
	return count
}

// UploadDataset stores an uploaded CSV or spreadsheet file and creates the
// dataset that tracks it. No rows are parsed yet; mapping happens later.
func UploadDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			ctx.Logger.Error("Failed to get file from request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
			return
		}

		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".csv" && ext != ".xlsx" && ext != ".xls" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File must be CSV or Excel (.csv, .xlsx, .xls). Got: " + file.Filename})
			return
		}

		dataType := c.DefaultQuery("data_type", "generic")

		src, err := file.Open()
		if err != nil {
			ctx.Logger.Error("Failed to open uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer src.Close()

		storedName := uuid.New().String() + "_" + filepath.Base(file.Filename)
		ref, err := ctx.Files.Save(c.Request.Context(), storedName, src)
		if err != nil {
			ctx.Logger.Error("Failed to store uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
			return
		}

		dataset := entity.Dataset{
			SessionID:      sessionID,
			Name:           file.Filename,
			SourceFilename: file.Filename,
			StoredPath:     ref,
			DataType:       dataType,
		}
		if err := ctx.DB.Create(&dataset).Error; err != nil {
			ctx.Logger.Error("Failed to store dataset in database", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store dataset in database"})
			return
		}

		c.JSON(http.StatusOK, dataset)
	}
}

// ListDatasets returns the session's datasets, newest first, with record
// counts.
func ListDatasets(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		var datasets []entity.Dataset
		if err := ctx.DB.Where("session_id = ?", sessionID).Order("created_at desc").Find(&datasets).Error; err != nil {
			ctx.Logger.Error("Failed to list datasets", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list datasets"})
			return
		}

		out := make([]gin.H, 0, len(datasets))
		for _, ds := range datasets {
			out = append(out, gin.H{
				"id":              ds.ID,
				"name":            ds.Name,
				"source_filename": ds.SourceFilename,
				"data_type":       ds.DataType,
				"column_map":      ds.ColumnMap,
				"created_at":      ds.CreatedAt,
				"record_count":    recordCount(ctx, ds.ID),
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

// GetDataset returns one dataset with its record count.
func GetDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":              dataset.ID,
			"name":            dataset.Name,
			"source_filename": dataset.SourceFilename,
			"data_type":       dataset.DataType,
			"column_map":      dataset.ColumnMap,
			"created_at":      dataset.CreatedAt,
			"record_count":    recordCount(ctx, dataset.ID),
		})
	}
}

// DeleteDataset removes a dataset that has no records yet, along with its
// stored file.
func DeleteDataset(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		if count := recordCount(ctx, dataset.ID); count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete dataset: records have been created from it. Delete records first."})
			return
		}

		if err := ctx.Files.Delete(c.Request.Context(), dataset.StoredPath); err != nil {
			// The database row still goes away; an orphaned blob is
			// preferable to a dataset that cannot be deleted.
			ctx.Logger.Warn("Failed to delete stored file", zap.String("ref", dataset.StoredPath), zap.Error(err))
		}

		if err := ctx.DB.Delete(dataset).Error; err != nil {
			ctx.Logger.Error("Failed to delete dataset", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete dataset"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Dataset deleted successfully"})
	}
}

// GetDatasetColumns returns the headers detected in the stored file.
func GetDatasetColumns(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		headers, ok := datasetHeaders(ctx, c, dataset)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"columns": headers})
	}
}

// SuggestMappings scores the file's headers against the canonical field
// registry and returns per-field suggestions plus the auto-mapped result.
func SuggestMappings(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		headers, ok := datasetHeaders(ctx, c, dataset)
		if !ok {
			return
		}

		existing := dataset.ColumnMapStrings()
		suggestions := schema.SuggestMappings(headers, existing)
		autoMapped := schema.AutoMap(headers, existing, 0)

		c.JSON(http.StatusOK, gin.H{
			"columns":     headers,
			"suggestions": suggestions,
			"auto_mapped": autoMapped,
		})
	}
}

// MapColumns confirms a column map and runs the full ingestion pass over
// the stored file. On success the map is persisted on the dataset for later
// reprocessing.
func MapColumns(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		var req columnMappingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if len(req.ColumnMap) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Column mapping is empty. Please map at least one column to a canonical field."})
			return
		}

		headers, rows, ok := datasetRows(ctx, c, dataset)
		if !ok {
			return
		}

		result, err := ctx.Engine.Apply(c.Request.Context(), dataset, req.ColumnMap, headers, rows, ingest.ApplyOptions{
			ExtensionMap: req.CreateExtensionFields,
		})
		if err != nil {
			var mappingErr *ingest.MappingValidationError
			var rowErr *ingest.RowCreationError
			switch {
			case errors.As(err, &mappingErr):
				c.JSON(http.StatusBadRequest, gin.H{
					"error":             mappingErr.Error(),
					"invalid_columns":   mappingErr.Invalid,
					"available_columns": mappingErr.Available,
				})
			case errors.As(err, &rowErr):
				ctx.Logger.Error("Ingestion aborted on row", zap.Int("row", rowErr.Row), zap.Error(rowErr.Err))
				c.JSON(http.StatusBadRequest, gin.H{"error": rowErr.Error(), "row": rowErr.Row})
			default:
				ctx.Logger.Error("Failed to apply column mapping", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply column mapping"})
			}
			return
		}

		dataset.SetColumnMap(req.ColumnMap)
		if err := ctx.DB.Save(dataset).Error; err != nil {
			ctx.Logger.Error("Failed to save column map", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save column mapping"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         ingestMessage(result),
			"records_created": result.Created,
			"records_updated": result.Updated,
		})
	}
}

func ingestMessage(result ingest.Result) string {
	var parts []string
	if result.Created > 0 {
		parts = append(parts, "Created "+strconv.Itoa(result.Created)+" new record(s)")
	}
	if result.Updated > 0 {
		parts = append(parts, "Updated "+strconv.Itoa(result.Updated)+" existing record(s)")
	}
	if len(parts) == 0 {
		return "No changes made"
	}
	return strings.Join(parts, " and ")
}

// GetRawData pages through the stored file's rows before any mapping.
func GetRawData(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
		if err != nil || limit < 1 || limit > 1000 {
			limit = 100
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		headers, rows, ok := datasetRows(ctx, c, dataset)
		if !ok {
			return
		}

		total := len(rows)
		start := offset
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		c.JSON(http.StatusOK, gin.H{
			"rows":    rows[start:end],
			"total":   total,
			"offset":  offset,
			"limit":   limit,
			"columns": headers,
		})
	}
}

// ReprocessCheck re-reads the stored file against the confirmed column map
// and reports unmapped columns, extension columns and missing data.
func ReprocessCheck(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		if len(dataset.ColumnMap) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dataset has no column mapping. Please map columns first."})
			return
		}

		headers, rows, ok := datasetRows(ctx, c, dataset)
		if !ok {
			return
		}
		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, ctx.Engine.Check(dataset, records, headers, rows))
	}
}

// ReprocessUpdate backfills fields the file provides but the records are
// missing. Populated fields are never overwritten.
func ReprocessUpdate(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		if len(dataset.ColumnMap) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dataset has no column mapping. Please map columns first."})
			return
		}

		_, rows, ok := datasetRows(ctx, c, dataset)
		if !ok {
			return
		}
		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		result, err := ctx.Engine.Backfill(c.Request.Context(), dataset, records, rows)
		if err != nil {
			ctx.Logger.Error("Failed to backfill records", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update records"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Updated " + strconv.Itoa(result.RecordsUpdated) + " record(s) with " + strconv.Itoa(result.FieldsUpdated) + " field(s)",
			"records_updated": result.RecordsUpdated,
			"fields_updated":  result.FieldsUpdated,
		})
	}
}

// PromoteUnmapped copies unmapped file columns into each record's extension
// map without touching the column map.
func PromoteUnmapped(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}
		if len(records) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dataset has no records. Use column mapping instead."})
			return
		}

		headers, rows, ok := datasetRows(ctx, c, dataset)
		if !ok {
			return
		}

		result, err := ctx.Engine.PromoteUnmapped(c.Request.Context(), dataset, records, headers, rows)
		if err != nil {
			ctx.Logger.Error("Failed to promote unmapped columns", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update records"})
			return
		}

		if result.ColumnsAdded == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "No unmapped columns found", "columns_added": 0, "records_updated": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":         "Added " + strconv.Itoa(result.ColumnsAdded) + " unmapped column(s) to extension fields for " + strconv.Itoa(result.RecordsUpdated) + " record(s)",
			"columns_added":   result.ColumnsAdded,
			"records_updated": result.RecordsUpdated,
			"columns":         result.UnmappedColumns,
		})
	}
}
