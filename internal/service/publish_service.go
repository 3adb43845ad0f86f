package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"dataset-publisher/internal/client"
	"dataset-publisher/internal/middleware"
	"dataset-publisher/internal/model"
	"dataset-publisher/internal/security"
	"dataset-publisher/internal/source"
	"dataset-publisher/internal/utils"
	"dataset-publisher/pkg/response"
)

// State of a publish operation
type State string

const (
	StateUnauthenticated State = "Unauthenticated"
	StateAuthenticated   State = "Authenticated"
	StateRequestSent     State = "RequestSent"
	StateSucceeded       State = "Succeeded"
	StateFailed          State = "Failed"
)

// DefaultBatchSize is the most rows the push API accepts in one request
const DefaultBatchSize = 10000

// Transport sends one request to the analytics API
type Transport interface {
	Send(ctx context.Context, r client.Request) (*client.Response, error)
}

type PublishService interface {
	CreateDataset(ctx context.Context, ds model.Dataset) *response.Outcome
	AppendRows(ctx context.Context, datasetID, table string, rows []model.Row) *response.Outcome
	Run(ctx context.Context, plan Plan) []*response.Outcome
	GetStats() PublishStats
}

// Options tune how requests are built
type Options struct {
	RetentionPolicy string
	BatchSize       int
	Envelope        bool
}

// Plan lists the steps of one run
type Plan struct {
	CreateDataset bool
	Dataset       model.Dataset

	AppendRows bool
	// DatasetID may be empty when the dataset is created in the same run
	DatasetID string
	Table     string
	Rows      source.Source
}

// PublishStats counts what the service sent
type PublishStats struct {
	Requests       int64 `json:"requests"`
	FailedRequests int64 `json:"failedRequests"`
	RowsAppended   int64 `json:"rowsAppended"`
}

type publishService struct {
	transport Transport
	tokens    security.TokenProvider
	options   Options

	mutex sync.Mutex
	stats PublishStats
}

// NewPublishService creates a new instance of PublishService
func NewPublishService(transport Transport, tokens security.TokenProvider, options Options) PublishService {
	if options.BatchSize <= 0 {
		options.BatchSize = DefaultBatchSize
	}

	return &publishService{
		transport: transport,
		tokens:    tokens,
		options:   options,
	}
}

func (ps *publishService) CreateDataset(ctx context.Context, ds model.Dataset) *response.Outcome {
	ctx, correlationID := withCorrelation(ctx)
	op := newOperation(client.OperationCreateDataset, correlationID)

	token, err := ps.tokens.Token(ctx)
	if err != nil {
		return op.fail(err)
	}
	op.advance(StateAuthenticated)

	body, err := model.Serialize(ds)
	if err != nil {
		return op.fail(err)
	}

	log.Printf("Creating dataset %q with %d tables and %d columns", ds.Name, len(ds.Tables), ds.ColumnCount())

	op.advance(StateRequestSent)
	resp, err := ps.send(ctx, client.Request{
		Operation: op.name,
		Path:      client.DatasetsPath(ps.options.RetentionPolicy),
		Token:     token,
		Body:      body,
	})
	if err != nil {
		return op.fail(err)
	}

	return op.succeed(resp)
}

func (ps *publishService) AppendRows(ctx context.Context, datasetID, table string, rows []model.Row) *response.Outcome {
	ctx, correlationID := withCorrelation(ctx)
	op := newOperation(client.OperationAppendRows, correlationID)

	if !utils.IsDatasetID(datasetID) {
		log.Printf("Warning: dataset ID %q is not a UUID; the API will most likely reject it", datasetID)
	}

	token, err := ps.tokens.Token(ctx)
	if err != nil {
		return op.fail(err)
	}
	op.advance(StateAuthenticated)

	path := client.RowsPath(datasetID, table)
	batches := splitBatches(rows, ps.options.BatchSize)

	var last *client.Response
	for i, batch := range batches {
		body, err := ps.serializeRows(batch)
		if err != nil {
			outcome := op.fail(err)
			outcome.Batches = i
			return outcome
		}

		op.advance(StateRequestSent)
		last, err = ps.send(ctx, client.Request{
			Operation: op.name,
			Path:      path,
			Token:     token,
			Body:      body,
		})
		if err != nil {
			if len(batches) > 1 {
				log.Printf("Append to %s stopped at batch %d of %d", table, i+1, len(batches))
			}
			outcome := op.fail(err)
			outcome.Batches = i
			return outcome
		}

		middleware.RecordRowsAppended(table, len(batch))
		ps.mutex.Lock()
		ps.stats.RowsAppended += int64(len(batch))
		ps.mutex.Unlock()
	}

	outcome := op.succeed(last)
	outcome.Batches = len(batches)
	return outcome
}

func (ps *publishService) Run(ctx context.Context, plan Plan) []*response.Outcome {
	var outcomes []*response.Outcome

	datasetID := plan.DatasetID
	if plan.CreateDataset {
		outcome := ps.CreateDataset(ctx, plan.Dataset)
		outcomes = append(outcomes, outcome)
		if outcome.Success && datasetID == "" {
			datasetID = createdDatasetID(outcome.Body)
		}
	}

	if !plan.AppendRows {
		return outcomes
	}

	if datasetID == "" {
		err := utils.NewConfigurationError(fmt.Errorf("no dataset ID to append rows to"))
		return append(outcomes, response.ErrorOutcome(client.OperationAppendRows, string(StateFailed), err, ""))
	}

	rows, err := plan.Rows.Read(ctx)
	if err != nil {
		return append(outcomes, response.ErrorOutcome(client.OperationAppendRows, string(StateFailed), err, ""))
	}

	log.Printf("Appending %d rows from %s source to %s", len(rows), plan.Rows.Name(), plan.Table)
	return append(outcomes, ps.AppendRows(ctx, datasetID, plan.Table, rows))
}

func (ps *publishService) GetStats() PublishStats {
	ps.mutex.Lock()
	defer ps.mutex.Unlock()

	return ps.stats
}

func (ps *publishService) send(ctx context.Context, r client.Request) (*client.Response, error) {
	resp, err := ps.transport.Send(ctx, r)

	ps.mutex.Lock()
	ps.stats.Requests++
	if err != nil {
		ps.stats.FailedRequests++
	}
	ps.mutex.Unlock()

	return resp, err
}

func (ps *publishService) serializeRows(rows []model.Row) ([]byte, error) {
	if ps.options.Envelope {
		return model.SerializeRowsEnvelope(rows)
	}
	return model.SerializeRows(rows)
}

// operation tracks the state of one create or append call
type operation struct {
	name          string
	correlationID string
	state         State
}

func newOperation(name, correlationID string) *operation {
	return &operation{
		name:          name,
		correlationID: correlationID,
		state:         StateUnauthenticated,
	}
}

func (o *operation) advance(to State) {
	o.state = to
}

func (o *operation) succeed(resp *client.Response) *response.Outcome {
	o.state = StateSucceeded
	return response.SuccessOutcome(o.name, string(o.state), resp.StatusCode, resp.Body, o.correlationID)
}

func (o *operation) fail(err error) *response.Outcome {
	log.Printf("%s failed in state %s: %v", o.name, o.state, err)
	o.state = StateFailed
	return response.ErrorOutcome(o.name, string(o.state), err, o.correlationID)
}

func withCorrelation(ctx context.Context) (context.Context, string) {
	correlationID := middleware.CorrelationIDFrom(ctx)
	return middleware.WithCorrelationID(ctx, correlationID), correlationID
}

// splitBatches returns at least one batch so an empty row list still issues a request
func splitBatches(rows []model.Row, size int) [][]model.Row {
	if len(rows) <= size {
		return [][]model.Row{rows}
	}

	batches := make([][]model.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches
}

// createdDatasetID extracts the id of a dataset from the create response
func createdDatasetID(body string) string {
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		return ""
	}
	return created.ID
}
