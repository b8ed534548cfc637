package journal

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

const exportBatchSize = 500

// ExportRow is the analytics shape of one entry
type ExportRow struct {
	ID          string             `bigquery:"id"`
	CreatedAt   time.Time          `bigquery:"created_at"`
	Type        string             `bigquery:"type"`
	Title       string             `bigquery:"title"`
	Summary     string             `bigquery:"summary"`
	Tags        []string           `bigquery:"tags"`
	Mood        bigquery.NullInt64 `bigquery:"mood"`
	Rating      int64              `bigquery:"rating"`
	Importance  string             `bigquery:"importance"`
	VisualStyle string             `bigquery:"visual_style"`
	Placeholder bool               `bigquery:"placeholder"`
	ExportedAt  time.Time          `bigquery:"exported_at"`
}

// InsertID is the streaming dedup key. Retries of the same run collapse into
// one row; separate runs append rows told apart by exported_at.
func (r *ExportRow) InsertID() string {
	return r.ID + "@" + r.ExportedAt.Format(time.RFC3339Nano)
}

// Save implements bigquery.ValueSaver
func (r *ExportRow) Save() (map[string]bigquery.Value, string, error) {
	return (&bigquery.StructSaver{Struct: r, InsertID: r.InsertID()}).Save()
}

type ExportReport struct {
	Dataset string `json:"dataset"`
	Table   string `json:"table"`
	Rows    int    `json:"rows"`
}

// Export streams every entry into an analytics table, creating it first if
// needed. Each run appends a full snapshot stamped with the same exported_at.
func (u *UseCase) Export(ctx context.Context, datasetID, tableID string) (*ExportReport, error) {
	if u.bigquery == nil {
		return nil, goerr.Wrap(ErrExportNotConfigured, "export needs a BigQuery project")
	}
	if datasetID == "" || tableID == "" {
		return nil, goerr.New("dataset and table are required", goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}

	if err := u.bigquery.EnsureTable(ctx, datasetID, tableID, &ExportRow{}); err != nil {
		return nil, err
	}

	entries, err := u.Timeline(ctx, 0)
	if err != nil {
		return nil, err
	}

	exportedAt := u.now().UTC()
	rows := make([]*ExportRow, 0, len(entries))
	for _, e := range entries {
		typ := e.Type
		if typ == "" {
			typ = model.EntryTypeEntry
		}
		row := &ExportRow{
			ID:          string(e.ID),
			CreatedAt:   e.CreatedAt().UTC(),
			Type:        string(typ),
			Title:       e.Title,
			Summary:     e.Summary,
			Tags:        e.Tags,
			Rating:      int64(e.Rating),
			Importance:  string(e.Importance),
			VisualStyle: e.VisualStyle,
			Placeholder: isPlaceholderCard(e.GeneratedCardURL),
			ExportedAt:  exportedAt,
		}
		if e.UserMood != nil {
			row.Mood = bigquery.NullInt64{Int64: int64(*e.UserMood), Valid: true}
		}
		rows = append(rows, row)
	}

	for start := 0; start < len(rows); start += exportBatchSize {
		end := min(start+exportBatchSize, len(rows))
		if err := u.bigquery.Insert(ctx, datasetID, tableID, rows[start:end]); err != nil {
			return nil, goerr.Wrap(err, "failed to export batch", goerr.V("offset", start))
		}
	}

	logging.From(ctx).Info("entries exported", "dataset", datasetID, "table", tableID, "rows", len(rows))
	return &ExportReport{Dataset: datasetID, Table: tableID, Rows: len(rows)}, nil
}
