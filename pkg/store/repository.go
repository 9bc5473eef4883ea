package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/prelude-parser/pkg/common/models"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrExportNotFound = errors.New("export not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type exportModel struct {
	ID          uuid.UUID      `gorm:"primaryKey;column:id"`
	Source      string         `gorm:"column:source"`
	Checksum    string         `gorm:"column:checksum;index"`
	FormCount   int            `gorm:"column:form_count"`
	RecordCount int            `gorm:"column:record_count"`
	Forms       datatypes.JSON `gorm:"column:forms"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
}

func (exportModel) TableName() string { return "flatfile_exports" }

type recordModel struct {
	ID         uuid.UUID      `gorm:"primaryKey;column:id"`
	ExportID   uuid.UUID      `gorm:"column:export_id;index:idx_flatfile_records_export_form"`
	FormName   string         `gorm:"column:form_name;index:idx_flatfile_records_export_form"`
	Position   int            `gorm:"column:position"`
	Repeating  bool           `gorm:"column:repeating"`
	Iteration  int            `gorm:"column:iteration"`
	ShortNames bool           `gorm:"column:short_names"`
	Fields     datatypes.JSON `gorm:"column:fields"`
}

func (recordModel) TableName() string { return "flatfile_records" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&exportModel{},
		&recordModel{},
	)
}

// SaveDataset stores the export row and all of its records in one
// transaction. summary.ID must be set.
func (r *Repository) SaveDataset(ctx context.Context, summary models.ExportSummary, ds *flatfile.Dataset) error {
	export, err := toExportModel(summary)
	if err != nil {
		return err
	}
	rows, err := toRecordModels(summary.ID, ds)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(export).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (r *Repository) GetExport(ctx context.Context, id uuid.UUID) (models.ExportSummary, error) {
	var row exportModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExportSummary{}, fmt.Errorf("%s: %w", id, ErrExportNotFound)
		}
		return models.ExportSummary{}, err
	}
	return fromExportModel(row), nil
}

// ListRecords returns the stored records of an export in document order,
// optionally limited to one form.
func (r *Repository) ListRecords(ctx context.Context, exportID uuid.UUID, form string) ([]flatfile.Record, error) {
	if _, err := r.GetExport(ctx, exportID); err != nil {
		return nil, err
	}
	query := r.db.WithContext(ctx).Where("export_id = ?", exportID)
	if form != "" {
		query = query.Where("form_name = ?", form)
	}
	var rows []recordModel
	if err := query.Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]flatfile.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRecordModel(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func toExportModel(summary models.ExportSummary) (*exportModel, error) {
	forms, err := json.Marshal(summary.Forms)
	if err != nil {
		return nil, err
	}
	created := summary.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &exportModel{
		ID:          summary.ID,
		Source:      summary.Source,
		Checksum:    summary.Checksum,
		FormCount:   len(summary.Forms),
		RecordCount: summary.Records,
		Forms:       datatypes.JSON(forms),
		CreatedAt:   created,
	}, nil
}

func fromExportModel(row exportModel) models.ExportSummary {
	summary := models.ExportSummary{
		ID:        row.ID,
		Source:    row.Source,
		Checksum:  row.Checksum,
		Records:   row.RecordCount,
		Stored:    true,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Forms) > 0 {
		_ = json.Unmarshal(row.Forms, &summary.Forms)
	}
	return summary
}

func toRecordModels(exportID uuid.UUID, ds *flatfile.Dataset) ([]recordModel, error) {
	rows := make([]recordModel, 0, ds.Len())
	for position, rec := range ds.All() {
		fields, err := flatfile.EncodeFields(rec.Fields)
		if err != nil {
			return nil, fmt.Errorf("encoding %s record %d: %w", rec.FormName, position, err)
		}
		rows = append(rows, recordModel{
			ID:         uuid.New(),
			ExportID:   exportID,
			FormName:   rec.FormName,
			Position:   position,
			Repeating:  rec.Repeating,
			Iteration:  rec.Iteration,
			ShortNames: rec.ShortNames,
			Fields:     datatypes.JSON(fields),
		})
	}
	return rows, nil
}

func fromRecordModel(row recordModel) (flatfile.Record, error) {
	fields, err := flatfile.DecodeFields(row.Fields)
	if err != nil {
		return flatfile.Record{}, err
	}
	return flatfile.Record{
		FormName:   row.FormName,
		Repeating:  row.Repeating,
		Iteration:  row.Iteration,
		ShortNames: row.ShortNames,
		Fields:     fields,
	}, nil
}
