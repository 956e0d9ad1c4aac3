package model

import (
	"context"

	"github.com/twitchtv/twirp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	resultCollection = "evaluation_results"
	tracerName       = "github.com/orbit-maths/tutor-eval/internal/eval/model"

	DefaultRecentRuns = 20
)

// Repository is the append-only store of evaluation results.
type Repository struct {
	conn *mongo.Database
}

func New(conn *mongo.Database) *Repository {
	return &Repository{
		conn: conn,
	}
}

// EnsureIndexes creates the indexes used by the list queries.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.conn.Collection(resultCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *Repository) AppendResult(ctx context.Context, res *Result) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Repository.AppendResult")
	span.SetAttributes(
		attribute.String("run.id", res.RunID),
		attribute.String("test.name", res.TestName),
		attribute.Bool("test.passed", res.Passed),
	)
	defer span.End()

	_, err := r.conn.Collection(resultCollection).InsertOne(ctx, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to append result")
		return err
	}

	span.SetStatus(codes.Ok, "result appended")
	return nil
}

// ListByRunID returns the results of one run in the order they were recorded.
func (r *Repository) ListByRunID(ctx context.Context, runID string) ([]*Result, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Repository.ListByRunID")
	span.SetAttributes(attribute.String("run.id", runID))
	defer span.End()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.conn.Collection(resultCollection).
		Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query results")
		return nil, err
	}

	var items []*Result
	if err := cursor.All(ctx, &items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode results")
		return nil, err
	}

	if len(items) == 0 {
		span.SetStatus(codes.Error, "run not found")
		return nil, twirp.NotFoundError("run not found")
	}

	span.SetAttributes(attribute.Int("results.count", len(items)))
	span.SetStatus(codes.Ok, "results listed")
	return items, nil
}

// DescribeRun loads a run together with its results.
func (r *Repository) DescribeRun(ctx context.Context, runID string) (*Run, error) {
	results, err := r.ListByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}
	return NewRun(runID, results), nil
}

// ListRecentRuns summarises the newest runs, most recent first. Results are not
// included.
func (r *Repository) ListRecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Repository.ListRecentRuns")
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentRuns
	}
	span.SetAttributes(attribute.Int("runs.limit", limit))

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$run_id"},
			{Key: "created_at", Value: bson.D{{Key: "$min", Value: "$created_at"}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "passed", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{"$passed", 1, 0}},
			}}}},
			{Key: "errored", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{bson.D{{Key: "$eq", Value: bson.A{"$outcome", string(OutcomeError)}}}, 1, 0}},
			}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.conn.Collection(resultCollection).Aggregate(ctx, pipeline)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to aggregate runs")
		return nil, err
	}

	var runs []*Run
	if err := cursor.All(ctx, &runs); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode runs")
		return nil, err
	}

	for _, run := range runs {
		run.Failed = run.Total - run.Passed
	}

	span.SetAttributes(attribute.Int("runs.count", len(runs)))
	span.SetStatus(codes.Ok, "runs listed")
	return runs, nil
}
