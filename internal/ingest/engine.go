package ingest

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Urology-AI/data-manager/internal/coerce"
	"github.com/Urology-AI/data-manager/internal/entity"
	"github.com/Urology-AI/data-manager/internal/schema"
)

// Engine reconciles parsed source rows into the record store. Rows resolve
// to an existing record by MRN when the file provides one, by their 1-based
// ordinal key otherwise; existing records are merged fill-only-if-missing,
// new records are fully populated. Resolve-and-upsert is serialized per
// dataset because the merge is read-modify-write.
type Engine struct {
	store  RecordStore
	logger *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewEngine(store RecordStore, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

// Result aggregates one ingestion pass.
type Result struct {
	Created int `json:"records_created"`
	Updated int `json:"records_updated"`
}

// ApplyOptions carries the optional secondary mapping that redirects
// specific unmapped headers into named extension entries, and the key policy
// for rows created on this pass.
type ApplyOptions struct {
	ExtensionMap map[string]string // source header -> custom extension field name

	// KeyFromMRN keys new records by their MRN instead of the row ordinal,
	// falling back to "row_N" when a row carries none. The out-of-band
	// ingestion path uses this so re-uploads of the same export stay
	// idempotent regardless of row order.
	KeyFromMRN bool
}

func (e *Engine) datasetLock(id uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Apply runs one ingestion pass: it validates the column map against the
// file's headers, then resolves and upserts every row in file order. A
// failure creating a new record aborts the pass with the offending row
// index; merge updates never fail per-field.
func (e *Engine) Apply(ctx context.Context, ds *entity.Dataset, columnMap map[string]string, headers []string, rows []Row, opts ApplyOptions) (Result, error) {
	lock := e.datasetLock(ds.ID)
	lock.Lock()
	defer lock.Unlock()

	var result Result

	if err := ValidateColumnMap(columnMap, headers); err != nil {
		return result, err
	}

	for idx, row := range rows {
		candidate := BuildCandidate(columnMap, row)
		key := rowKey(idx, candidate, opts)
		extension := buildExtension(columnMap, opts.ExtensionMap, headers, row)
		raw := rawSnapshot(headers, row)

		existing, err := e.resolve(ctx, ds.ID, key, candidate)
		if err != nil {
			return result, err
		}

		if existing == nil {
			rec := &entity.Record{
				DatasetID:       ds.ID,
				RecordKey:       key,
				Raw:             raw,
				ExtensionFields: extension,
			}
			for name, value := range candidate {
				rec.SetField(name, value)
			}
			if err := e.store.Create(ctx, rec); err != nil {
				e.logger.Error("Failed to create record",
					zap.String("dataset_id", ds.ID.String()),
					zap.Int("row", idx+1),
					zap.Error(err))
				return result, &RowCreationError{Row: idx + 1, Err: err}
			}
			result.Created++
			continue
		}

		changed := MergeRecord(existing, candidate, extension)
		existing.Raw = raw
		if err := e.store.Update(ctx, existing); err != nil {
			return result, err
		}
		if changed {
			result.Updated++
		}
	}

	return result, nil
}

// rowKey derives the record key for a row: the 1-based ordinal by default,
// the MRN (with a "row_N" fallback) under KeyFromMRN.
func rowKey(idx int, candidate map[string]any, opts ApplyOptions) string {
	if opts.KeyFromMRN {
		if mrn, ok := candidate["mrn"].(string); ok && mrn != "" {
			return mrn
		}
		return "row_" + strconv.Itoa(idx+1)
	}
	return strconv.Itoa(idx + 1)
}

// resolve finds the record a row belongs to: MRN first when the candidate
// carries one, ordinal key otherwise. MRN lookup stays scoped to the
// dataset; the secondary identifier is not assumed globally unique.
func (e *Engine) resolve(ctx context.Context, datasetID uuid.UUID, key string, candidate map[string]any) (*entity.Record, error) {
	if mrn, ok := candidate["mrn"].(string); ok && mrn != "" {
		rec, err := e.store.FindByMRN(ctx, datasetID, mrn)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}
	return e.store.FindByKey(ctx, datasetID, key)
}

// ValidateColumnMap rejects a map with any entry referencing a header absent
// from the file, before any row is touched. Every submitted pair is checked,
// not just the canonical ones.
func ValidateColumnMap(columnMap map[string]string, headers []string) error {
	available := make(map[string]bool, len(headers))
	for _, h := range headers {
		available[h] = true
	}

	var invalid []FieldColumn
	for field, col := range columnMap {
		if col == "" {
			continue
		}
		if !available[col] {
			invalid = append(invalid, FieldColumn{Field: field, Column: col})
		}
	}
	if len(invalid) > 0 {
		sort.Slice(invalid, func(i, j int) bool { return invalid[i].Field < invalid[j].Field })
		return &MappingValidationError{Invalid: invalid, Available: headers}
	}
	return nil
}

// BuildCandidate applies the column map to a row and coerces each mapped
// value to its field's semantic type. Every canonical field appears in the
// result; unmapped or unparsable ones are nil.
func BuildCandidate(columnMap map[string]string, row Row) map[string]any {
	candidate := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		candidate[field.Name] = nil
		col, ok := columnMap[field.Name]
		if !ok || col == "" {
			continue
		}
		raw, ok := row[col]
		if !ok {
			continue
		}
		candidate[field.Name] = coerce.Value(raw, field.Type)
	}
	return candidate
}

// buildExtension captures every header outside the column map's value set.
// Redirected headers land under their custom field name, the rest under the
// raw header. Empty cells are skipped.
func buildExtension(columnMap, extensionMap map[string]string, headers []string, row Row) datatypes.JSONMap {
	mapped := make(map[string]bool, len(columnMap)+len(extensionMap))
	for _, col := range columnMap {
		mapped[col] = true
	}
	for col := range extensionMap {
		mapped[col] = true
	}

	extension := datatypes.JSONMap{}
	for col, custom := range extensionMap {
		if value, ok := cleanScalar(row[col]); ok {
			extension[custom] = value
		}
	}
	for _, col := range headers {
		if mapped[col] {
			continue
		}
		if value, ok := cleanScalar(row[col]); ok {
			extension[col] = value
		}
	}
	return extension
}

// rawSnapshot copies a row for the audit snapshot, untouched.
func rawSnapshot(headers []string, row Row) datatypes.JSONMap {
	raw := make(datatypes.JSONMap, len(headers))
	for _, h := range headers {
		raw[h] = row[h]
	}
	return raw
}

// cleanScalar trims a cell and reports whether anything is left.
func cleanScalar(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	return trimmed, trimmed != ""
}

// MergeRecord applies fill-only-if-missing: a canonical field is written
// only when its current value is missing and the candidate value is not.
// Extension entries are merged key-by-key. Reports whether anything
// actually changed.
func MergeRecord(rec *entity.Record, candidate map[string]any, extension datatypes.JSONMap) bool {
	changed := false

	for name, value := range candidate {
		if IsMissing(value) {
			continue
		}
		current, ok := rec.Field(name)
		if !ok || !IsMissing(current) {
			continue
		}
		if rec.SetField(name, value) {
			changed = true
		}
	}

	if len(extension) > 0 {
		if rec.ExtensionFields == nil {
			rec.ExtensionFields = datatypes.JSONMap{}
		}
		for k, v := range extension {
			if existing, ok := rec.ExtensionFields[k]; !ok || existing != v {
				rec.ExtensionFields[k] = v
				changed = true
			}
		}
	}

	return changed
}

// IsMissing is the three-way missing classification used by every
// incremental path: nil, blank strings and empty collections count as
// missing; zero numbers and false booleans do not.
func IsMissing(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case datatypes.JSONMap:
		return len(value) == 0
	case map[string]any:
		return len(value) == 0
	case []any:
		return len(value) == 0
	default:
		return false
	}
}
