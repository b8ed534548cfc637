package adapter

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
)

// BigQuery writes rows into an analytics table
type BigQuery interface {
	// EnsureTable creates the table with the schema inferred from row when it does not exist yet
	EnsureTable(ctx context.Context, datasetID, tableID string, row any) error

	// Insert streams rows into the table. rows must be a slice of structs or ValueSavers.
	Insert(ctx context.Context, datasetID, tableID string, rows any) error
}

type bigqueryClient struct {
	client *bigquery.Client
}

func NewBigQuery(ctx context.Context, projectID string) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client", goerr.V("project_id", projectID))
	}

	return &bigqueryClient{client: client}, nil
}

func (bq *bigqueryClient) EnsureTable(ctx context.Context, datasetID, tableID string, row any) error {
	table := bq.client.Dataset(datasetID).Table(tableID)
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	} else if !isHTTPStatus(err, http.StatusNotFound) {
		return goerr.Wrap(err, "failed to get table metadata",
			goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}

	schema, err := bigquery.InferSchema(row)
	if err != nil {
		return goerr.Wrap(err, "failed to infer table schema")
	}

	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil && !isHTTPStatus(err, http.StatusConflict) {
		return goerr.Wrap(err, "failed to create table",
			goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}
	return nil
}

func (bq *bigqueryClient) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	inserter := bq.client.Dataset(datasetID).Table(tableID).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return goerr.Wrap(err, "failed to insert rows",
			goerr.V("dataset", datasetID), goerr.V("table", tableID))
	}
	return nil
}

func isHTTPStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
