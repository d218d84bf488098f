package http

import (
	"bytes"
	"errors"
	"io"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/coerce"
	"github.com/Urology-AI/data-manager/internal/entity"
	"github.com/Urology-AI/data-manager/internal/ingest"
	"github.com/Urology-AI/data-manager/internal/schema"
	"github.com/Urology-AI/data-manager/internal/utils"
)

// uploadsDatasetName is the dataset that collects records ingested through
// the out-of-band file upload endpoint.
const uploadsDatasetName = "Data Manager Uploads"

func sessionRecordFromRequest(ctx *appcontext.Context, c *gin.Context) (*entity.Record, bool) {
	sessionID, err := utils.GetSessionIDFromClaims(c)
	if err != nil {
		ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
		return nil, false
	}

	recordID, err := uuid.Parse(c.Param("recordID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID"})
		return nil, false
	}

	record, err := utils.SessionRecord(ctx, sessionID, recordID)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrDatasetNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		case errors.Is(err, utils.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		default:
			ctx.Logger.Error("Failed to get record from database", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get record from database"})
		}
		return nil, false
	}
	return record, true
}

// ListRecords pages through a dataset's records with optional text search
// and a missing-field filter.
func ListRecords(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
		if err != nil || pageSize < 1 || pageSize > 500 {
			pageSize = 50
		}

		query := ctx.DB.Model(&entity.Record{}).Where("dataset_id = ?", dataset.ID)

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + search + "%"
			query = query.Where(
				"record_key ILIKE ? OR mrn ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR race ILIKE ?",
				pattern, pattern, pattern, pattern, pattern,
			)
		}

		if missing := c.Query("missing_field"); missing != "" {
			field, found := schema.FieldByName(missing)
			if !found {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown field: " + missing})
				return
			}
			if field.Type == schema.TypeString {
				query = query.Where(missing + " IS NULL OR " + missing + " = ''")
			} else {
				query = query.Where(missing + " IS NULL")
			}
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			ctx.Logger.Error("Failed to count records", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
			return
		}

		var records []entity.Record
		if err := query.Order("record_key").Limit(pageSize).Offset((page - 1) * pageSize).Find(&records).Error; err != nil {
			ctx.Logger.Error("Failed to list records", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
			return
		}

		pages := int(math.Ceil(float64(total) / float64(pageSize)))
		c.JSON(http.StatusOK, gin.H{
			"items":     records,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
			"pages":     pages,
		})
	}
}

// ListAllRecords pages through every record in the session, across all of
// its datasets, with the same text search as the per-dataset listing.
func ListAllRecords(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "100"))
		if err != nil || pageSize < 1 || pageSize > 1000 {
			pageSize = 100
		}

		query := ctx.DB.Model(&entity.Record{}).
			Joins("JOIN datasets ON datasets.id = records.dataset_id").
			Where("datasets.session_id = ?", sessionID)

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			pattern := "%" + search + "%"
			query = query.Where(
				"records.record_key ILIKE ? OR records.mrn ILIKE ? OR records.first_name ILIKE ? OR records.last_name ILIKE ? OR records.race ILIKE ?",
				pattern, pattern, pattern, pattern, pattern,
			)
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			ctx.Logger.Error("Failed to count records", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
			return
		}

		var records []entity.Record
		if err := query.Order("records.created_at desc").Limit(pageSize).Offset((page - 1) * pageSize).Find(&records).Error; err != nil {
			ctx.Logger.Error("Failed to list records", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list records"})
			return
		}

		pages := int(math.Ceil(float64(total) / float64(pageSize)))
		c.JSON(http.StatusOK, gin.H{
			"items":     records,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
			"pages":     pages,
		})
	}
}

// CreateRecord inserts a record by hand, outside any file ingestion. The
// body carries dataset_id, a record_key unique within the dataset, and any
// canonical or extension fields.
func CreateRecord(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		datasetRaw, _ := body["dataset_id"].(string)
		datasetID, err := uuid.Parse(datasetRaw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dataset_id is required"})
			return
		}
		key, _ := body["record_key"].(string)
		key = strings.TrimSpace(key)
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_key is required"})
			return
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
			return
		}

		var existing entity.Record
		err = ctx.DB.Where("dataset_id = ? AND record_key = ?", dataset.ID, key).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Record with key '" + key + "' already exists in this dataset"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.Logger.Error("Failed to check for existing record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create record"})
			return
		}

		record := entity.Record{DatasetID: dataset.ID, RecordKey: key}
		delete(body, "dataset_id")
		delete(body, "record_key")
		if err := applyRecordPatch(&record, body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := ctx.DB.Create(&record).Error; err != nil {
			ctx.Logger.Error("Failed to create record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create record"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// BulkUpdateRecords patches many records in one call. Each entry carries the
// record's id plus the same body UpdateRecord accepts; failures are
// collected per entry instead of aborting the batch.
func BulkUpdateRecords(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		var updates []map[string]any
		if err := c.ShouldBindJSON(&updates); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		updatedCount := 0
		errs := []gin.H{}
		for _, update := range updates {
			idRaw, _ := update["id"].(string)
			recordID, err := uuid.Parse(idRaw)
			if err != nil {
				errs = append(errs, gin.H{"id": idRaw, "error": "Missing or invalid record ID"})
				continue
			}

			record, err := utils.SessionRecord(ctx, sessionID, recordID)
			if err != nil {
				errs = append(errs, gin.H{"id": idRaw, "error": "Record not found"})
				continue
			}

			patch := make(map[string]any, len(update))
			for k, v := range update {
				if k != "id" {
					patch[k] = v
				}
			}
			if err := applyRecordPatch(record, patch); err != nil {
				errs = append(errs, gin.H{"id": idRaw, "error": err.Error()})
				continue
			}
			if err := ctx.DB.Save(record).Error; err != nil {
				ctx.Logger.Error("Failed to update record", zap.String("record_id", idRaw), zap.Error(err))
				errs = append(errs, gin.H{"id": idRaw, "error": "Failed to update record"})
				continue
			}
			updatedCount++
		}

		c.JSON(http.StatusOK, gin.H{
			"updated_count": updatedCount,
			"errors":        errs,
		})
	}
}

// GetRecord returns a single record.
func GetRecord(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := sessionRecordFromRequest(ctx, c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// UpdateRecord patches canonical fields and extension fields on a record.
// Canonical values arrive as strings and go through the same coercion as
// file ingestion; a blank string clears the field. Extension fields are
// merged key-by-key.
func UpdateRecord(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := sessionRecordFromRequest(ctx, c)
		if !ok {
			return
		}

		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		if err := applyRecordPatch(record, body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := ctx.DB.Save(record).Error; err != nil {
			ctx.Logger.Error("Failed to update record", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

// applyRecordPatch writes a PATCH body onto a record: canonical fields go
// through type coercion (blank strings clear), extension_fields merges
// key-by-key with nil deleting a key. Unknown field names are an error and
// leave the record partially patched; callers discard it without saving.
func applyRecordPatch(record *entity.Record, body map[string]any) error {
	for name, raw := range body {
		if name == "extension_fields" {
			patch, isMap := raw.(map[string]any)
			if !isMap {
				return errors.New("extension_fields must be an object")
			}
			if record.ExtensionFields == nil {
				record.ExtensionFields = datatypes.JSONMap{}
			}
			for k, v := range patch {
				if v == nil {
					delete(record.ExtensionFields, k)
					continue
				}
				record.ExtensionFields[k] = v
			}
			continue
		}

		field, found := schema.FieldByName(name)
		if !found {
			return errors.New("Unknown field: " + name)
		}
		record.SetField(name, patchValue(raw, field.Type))
	}
	return nil
}

// patchValue coerces one PATCH body value into the field's storage type,
// returning nil (clear the field) when the value is empty or unparseable.
func patchValue(raw any, t schema.FieldType) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return coerce.Value(v, t)
	case float64:
		switch t {
		case schema.TypeNumber:
			return v
		default:
			return coerce.Value(strconv.FormatFloat(v, 'f', -1, 64), t)
		}
	case bool:
		if t == schema.TypeBoolean {
			return v
		}
		return coerce.Value(strconv.FormatBool(v), t)
	case time.Time:
		if t == schema.TypeDateTime {
			return v
		}
		return nil
	default:
		return nil
	}
}

// GetMissingness reports, per canonical field, how many of a dataset's
// records are missing a value.
func GetMissingness(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		fields := make(map[string]gin.H, len(schema.Fields))
		for _, field := range schema.Fields {
			missing := 0
			for _, rec := range records {
				value, _ := rec.Field(field.Name)
				if ingest.IsMissing(value) {
					missing++
				}
			}
			pct := 0.0
			if len(records) > 0 {
				pct = math.Round(float64(missing)/float64(len(records))*10000) / 100
			}
			fields[field.Name] = gin.H{
				"label":              field.Label,
				"missing_count":      missing,
				"missing_percentage": pct,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"total_records": len(records),
			"fields":        fields,
		})
	}
}

// UploadRecordsFile ingests a file in one shot: headers are auto-mapped
// against the canonical registry and the rows land in the session's shared
// uploads dataset. Existing records are matched by MRN and only their
// missing fields are filled.
func UploadRecordsFile(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := utils.GetSessionIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get session ID from claims", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session ID from claims"})
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
			return
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if ext != ".csv" && ext != ".xlsx" && ext != ".xls" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File must be CSV or Excel (.csv, .xlsx, .xls). Got: " + file.Filename})
			return
		}

		src, err := file.Open()
		if err != nil {
			ctx.Logger.Error("Failed to open uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			ctx.Logger.Error("Failed to read uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
			return
		}

		headers, rows, err := ingest.ReadRows(file.Filename, bytes.NewReader(content))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		autoMapped := schema.AutoMap(headers, nil, 0)
		if len(autoMapped) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No columns could be matched to canonical fields"})
			return
		}

		dataset, err := uploadsDataset(ctx, sessionID, file.Filename, bytes.NewReader(content), c)
		if err != nil {
			ctx.Logger.Error("Failed to prepare uploads dataset", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prepare uploads dataset"})
			return
		}

		result, err := ctx.Engine.Apply(c.Request.Context(), dataset, autoMapped, headers, rows, ingest.ApplyOptions{
			KeyFromMRN: true,
		})
		if err != nil {
			var rowErr *ingest.RowCreationError
			if errors.As(err, &rowErr) {
				ctx.Logger.Error("Ingestion aborted on row", zap.Int("row", rowErr.Row), zap.Error(rowErr.Err))
				c.JSON(http.StatusBadRequest, gin.H{"error": rowErr.Error(), "row": rowErr.Row})
				return
			}
			ctx.Logger.Error("Failed to ingest uploaded rows", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest uploaded rows"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Processed " + strconv.Itoa(len(rows)) + " row(s)",
			"dataset_id":      dataset.ID,
			"records_created": result.Created,
			"records_updated": result.Updated,
			"auto_mapped":     autoMapped,
		})
	}
}

// uploadsDataset finds or creates the session's shared uploads dataset and
// stores the latest uploaded file against it.
func uploadsDataset(ctx *appcontext.Context, sessionID uuid.UUID, filename string, content io.Reader, c *gin.Context) (*entity.Dataset, error) {
	storedName := uuid.New().String() + "_" + filepath.Base(filename)
	ref, err := ctx.Files.Save(c.Request.Context(), storedName, content)
	if err != nil {
		return nil, err
	}

	var dataset entity.Dataset
	err = ctx.DB.Where("session_id = ? AND name = ?", sessionID, uploadsDatasetName).First(&dataset).Error
	switch {
	case err == nil:
		dataset.SourceFilename = filename
		dataset.StoredPath = ref
		if err := ctx.DB.Save(&dataset).Error; err != nil {
			return nil, err
		}
		return &dataset, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		dataset = entity.Dataset{
			SessionID:      sessionID,
			Name:           uploadsDatasetName,
			SourceFilename: filename,
			StoredPath:     ref,
			DataType:       "uploads",
		}
		if err := ctx.DB.Create(&dataset).Error; err != nil {
			return nil, err
		}
		return &dataset, nil
	default:
		return nil, err
	}
}

// GetCustomFields returns the extension-field keys in use across a
// dataset's records, with per-key counts.
func GetCustomFields(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}
		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		counts := map[string]int{}
		for _, rec := range records {
			for key := range rec.ExtensionFields {
				counts[key]++
			}
		}

		fields := make([]gin.H, 0, len(counts))
		for key, count := range counts {
			fields = append(fields, gin.H{"name": key, "record_count": count})
		}
		c.JSON(http.StatusOK, gin.H{"fields": fields, "total_records": len(records)})
	}
}

type customFieldRequest struct {
	FieldName    string `json:"field_name" binding:"required"`
	DefaultValue string `json:"default_value"`
}

// AddCustomField adds an extension field to every record in a dataset that
// does not already carry it. Canonical field names are rejected.
func AddCustomField(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		var req customFieldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field_name is required"})
			return
		}
		name := strings.TrimSpace(req.FieldName)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field_name is required"})
			return
		}
		if schema.IsCanonical(name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'" + name + "' is a canonical field and cannot be a custom field"})
			return
		}

		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		updatedCount := 0
		for _, rec := range records {
			if _, exists := rec.ExtensionFields[name]; exists {
				continue
			}
			if rec.ExtensionFields == nil {
				rec.ExtensionFields = datatypes.JSONMap{}
			}
			rec.ExtensionFields[name] = req.DefaultValue
			if err := ctx.DB.Save(rec).Error; err != nil {
				ctx.Logger.Error("Failed to add custom field", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add custom field"})
				return
			}
			updatedCount++
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Added custom field '" + name + "' to " + strconv.Itoa(updatedCount) + " record(s)",
			"records_updated": updatedCount,
		})
	}
}

// RemoveCustomField deletes an extension field from every record in a
// dataset.
func RemoveCustomField(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		dataset, ok := sessionDatasetFromRequest(ctx, c)
		if !ok {
			return
		}

		name := strings.TrimSpace(c.Query("field_name"))
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "field_name query parameter is required"})
			return
		}

		records, ok := datasetRecords(ctx, c, dataset)
		if !ok {
			return
		}

		updatedCount := 0
		for _, rec := range records {
			if _, exists := rec.ExtensionFields[name]; !exists {
				continue
			}
			delete(rec.ExtensionFields, name)
			if err := ctx.DB.Save(rec).Error; err != nil {
				ctx.Logger.Error("Failed to remove custom field", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove custom field"})
				return
			}
			updatedCount++
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Removed custom field '" + name + "' from " + strconv.Itoa(updatedCount) + " record(s)",
			"records_updated": updatedCount,
		})
	}
}
