// Package audit appends the write-only trail of operator mutations.
package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

// Mutation types outside the per-kind CREATE/UPDATE/DELETE family.
const (
	FeatureSet   = "FEATURE_SET"
	FeatureUnset = "FEATURE_UNSET"
)

// Record is one audit line. Timestamp is serialized as RFC 3339 in JSON.
type Record struct {
	ActorID      string    `json:"actorId" bson:"actorId"`
	Target       string    `json:"target" bson:"target"`
	MutationType string    `json:"mutationType" bson:"mutationType"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
}

// Recorder appends records. There is deliberately no way to read, change
// or delete them through this interface.
type Recorder interface {
	Append(ctx context.Context, actorID, target, mutationType string) error
}

// MutationName returns "<KIND>_<OP>", e.g. EVENT_CREATE.
func MutationName(kind content.Kind, op string) string {
	return strings.ToUpper(string(kind)) + "_" + op
}

// MongoRecorder writes to the admin_audit_logs collection.
type MongoRecorder struct {
	col *mongo.Collection
	now func() time.Time
}

const Collection = "admin_audit_logs"

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{col: db.Collection(Collection), now: time.Now}
}

func (r *MongoRecorder) Append(ctx context.Context, actorID, target, mutationType string) error {
	rec := Record{ActorID: actorID, Target: target, MutationType: mutationType, Timestamp: r.now().UTC()}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return &content.AuditWriteError{Err: err}
	}
	return nil
}

// MemoryRecorder keeps records in memory for tests and the standalone service.
type MemoryRecorder struct {
	mu      sync.Mutex
	records []Record
	fail    error
	now     func() time.Time
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{now: time.Now}
}

func (r *MemoryRecorder) Append(ctx context.Context, actorID, target, mutationType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return &content.AuditWriteError{Err: r.fail}
	}
	if actorID == "" {
		return &content.AuditWriteError{Err: errors.New("empty actor")}
	}
	r.records = append(r.records, Record{ActorID: actorID, Target: target, MutationType: mutationType, Timestamp: r.now().UTC()})
	return nil
}

// Records returns a copy of everything appended so far.
func (r *MemoryRecorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}

// FailWith makes every following Append fail with err; nil restores normal behaviour.
func (r *MemoryRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}
