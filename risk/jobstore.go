// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package risk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
)

// ErrJobNotFound is returned when a job ID is unknown.
var ErrJobNotFound = fmt.Errorf("job not found")

// JobRecord is a job's stored lifecycle: the submitted job plus the
// outcome once a result arrives.
type JobRecord struct {
	contracts.RiskJob `bson:",inline"`

	Result      map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`
	Error       string                 `json:"error,omitempty" bson:"error,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

// JobStore tracks risk jobs from submission to completion.
type JobStore interface {
	// Put upserts a job record keyed by job ID.
	Put(ctx context.Context, rec *JobRecord) error
	// ApplyResult folds a worker result into the matching record.
	ApplyResult(ctx context.Context, res *contracts.RiskResult) error
	Get(ctx context.Context, jobID string) (*JobRecord, error)
	// List returns records, newest first, optionally filtered by status.
	List(ctx context.Context, status contracts.RiskJobStatus) ([]JobRecord, error)
}

// MemoryJobStore is an in-process JobStore for tests and local mode.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]JobRecord
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]JobRecord)}
}

func (s *MemoryJobStore) Put(ctx context.Context, rec *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[rec.JobID] = *rec
	return nil
}

func (s *MemoryJobStore) ApplyResult(ctx context.Context, res *contracts.RiskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[res.JobID]
	if !ok {
		return ErrJobNotFound
	}
	rec.Status = res.Status
	rec.Result = res.Result
	rec.Error = res.Error
	completed := res.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	rec.CompletedAt = &completed
	s.jobs[res.JobID] = rec
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &rec, nil
}

func (s *MemoryJobStore) List(ctx context.Context, status contracts.RiskJobStatus) ([]JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []JobRecord
	for _, rec := range s.jobs {
		if status != "" && rec.Status != status {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

const jobsCollection = "risk_jobs"

// MongoJobStore persists job records in MongoDB.
type MongoJobStore struct {
	jobs *mongo.Collection
}

// NewMongoJobStore builds a store over a database and ensures its indexes.
func NewMongoJobStore(ctx context.Context, db *mongo.Database) (*MongoJobStore, error) {
	s := &MongoJobStore{jobs: db.Collection(jobsCollection)}

	_, err := s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "job_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "submitted_at", Value: -1}},
		},
	})
	if err != nil {
		return nil, storage.NewStoreError("jobs", "NewMongoJobStore", "failed to ensure indexes", err)
	}
	return s, nil
}

func (s *MongoJobStore) Put(ctx context.Context, rec *JobRecord) error {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	_, err := s.jobs.UpdateOne(ctx,
		bson.M{"job_id": rec.JobID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storage.NewStoreError("jobs", "Put", "failed to upsert job", err)
	}
	return nil
}

func (s *MongoJobStore) ApplyResult(ctx context.Context, res *contracts.RiskResult) error {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	completed := res.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	update := bson.M{"$set": bson.M{
		"status":       res.Status,
		"result":       res.Result,
		"error":        res.Error,
		"completed_at": completed,
	}}
	out, err := s.jobs.UpdateOne(ctx, bson.M{"job_id": res.JobID}, update)
	if err != nil {
		return storage.NewStoreError("jobs", "ApplyResult", "failed to update job", err)
	}
	if out.MatchedCount == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *MongoJobStore) Get(ctx context.Context, jobID string) (*JobRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	var rec JobRecord
	err := s.jobs.FindOne(ctx, bson.M{"job_id": jobID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("jobs", "Get", "failed to load job", err)
	}
	return &rec, nil
}

func (s *MongoJobStore) List(ctx context.Context, status contracts.RiskJobStatus) ([]JobRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	cursor, err := s.jobs.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "submitted_at", Value: -1}}))
	if err != nil {
		return nil, storage.NewStoreError("jobs", "List", "failed to query jobs", err)
	}
	defer cursor.Close(ctx)

	var out []JobRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storage.NewStoreError("jobs", "List", "failed to decode jobs", err)
	}
	return out, nil
}
