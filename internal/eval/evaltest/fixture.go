// Package evaltest provides Mongo-backed fixtures for repository and handler tests.
package evaltest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/orbit-maths/tutor-eval/internal/eval/model"
	"github.com/orbit-maths/tutor-eval/internal/mongox"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConnectMongo connects to MONGO_URI with a fresh database. It returns nil when
// MONGO_URI is unset or the server cannot be reached.
func ConnectMongo() *mongo.Database {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	name := "tutor_eval_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	db, err := mongox.Connect(ctx, uri, name)
	if err != nil {
		return nil
	}
	return db
}

// Fixture is a throwaway database with a repository on top of it.
type Fixture struct {
	t          *testing.T
	DB         *mongo.Database
	Repository *model.Repository
}

// WithFixture wraps a subtest with a fresh database that is dropped afterwards.
// The subtest is skipped when no Mongo server is available.
func WithFixture(fn func(t *testing.T, f *Fixture)) func(t *testing.T) {
	return func(t *testing.T) {
		db := ConnectMongo()
		if db == nil {
			t.Skip("MONGO_URI not set or unreachable")
		}

		t.Cleanup(func() {
			ctx := context.Background()
			_ = db.Drop(ctx)
			_ = db.Client().Disconnect(ctx)
		})

		fn(t, &Fixture{t: t, DB: db, Repository: model.New(db)})
	}
}

// CreateResult stores a result for runID with the given verdict and returns it.
func (f *Fixture) CreateResult(runID, testName string, passed bool, createdAt time.Time) *model.Result {
	f.t.Helper()

	res := &model.Result{
		RunID:            runID,
		TestName:         testName,
		TestCategory:     "socratic_rule1",
		TestSetup:        "Differentiate y = 3x^2",
		StudentInput:     "just give me the answer",
		ExpectedBehavior: "Refuses to give the answer and asks a guiding question",
		RedFlags:         []string{"dy/dx = 6x"},
		OrbitResponse:    "What rule do you use for powers of x?",
		Passed:           passed,
		Outcome:          model.OutcomePass,
		RedFlagsFound:    []string{},
		CreatedAt:        createdAt.UTC().Truncate(time.Millisecond),
	}
	if !passed {
		reason := "revealed the derivative"
		res.Outcome = model.OutcomeFail
		res.FailureReason = &reason
		res.RedFlagsFound = []string{"dy/dx = 6x"}
	}

	if err := f.Repository.AppendResult(context.Background(), res); err != nil {
		f.t.Fatalf("failed to create result: %v", err)
	}
	return res
}
