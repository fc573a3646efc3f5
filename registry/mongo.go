// Copyright 2026 Contract Risk Sentinel
// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/contracts"
	"github.com/jonathanscholtes/contract-risk-mcp-foundry/shared/storage"
)

const (
	contractsCollection = "contracts"
	memosCollection     = "risk_memos"
)

// MongoStore persists the contract book and memos in MongoDB.
type MongoStore struct {
	contracts *mongo.Collection
	memos     *mongo.Collection
}

// NewMongoStore builds a store over a database and ensures its indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		contracts: db.Collection(contractsCollection),
		memos:     db.Collection(memosCollection),
	}

	_, err := s.contracts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "contract_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, storage.NewStoreError("registry", "NewMongoStore", "failed to ensure contract index", err)
	}
	_, err = s.memos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return nil, storage.NewStoreError("registry", "NewMongoStore", "failed to ensure memo index", err)
	}
	return s, nil
}

// Seed inserts the sample book, skipping contracts that already exist.
func (s *MongoStore) Seed(ctx context.Context) error {
	for _, c := range SampleBook() {
		err := s.Create(ctx, &c)
		if err != nil && !errors.Is(err, ErrAlreadyExists) {
			return err
		}
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, contractID string) (*contracts.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	var c contracts.Contract
	err := s.contracts.FindOne(ctx, bson.M{"contract_id": contractID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.NewStoreError("registry", "Get", "failed to load contract", err)
	}
	return &c, nil
}

func (s *MongoStore) Create(ctx context.Context, c *contracts.Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	_, err := s.contracts.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return storage.NewStoreError("registry", "Create", "failed to insert contract", err)
	}
	return nil
}

func (s *MongoStore) Search(ctx context.Context, filter SearchFilter) ([]contracts.Contract, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.ContractType != "" {
		query["contract_type"] = filter.ContractType
	}
	if filter.CurrencyPair != "" {
		query["currency_pair"] = filter.CurrencyPair
	}
	if filter.Counterparty != "" {
		query["counterparty"] = bson.M{
			"$regex":   regexEscape(filter.Counterparty),
			"$options": "i",
		}
	}

	cursor, err := s.contracts.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "contract_id", Value: 1}}))
	if err != nil {
		return nil, storage.NewStoreError("registry", "Search", "failed to query contracts", err)
	}
	defer cursor.Close(ctx)

	var out []contracts.Contract
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storage.NewStoreError("registry", "Search", "failed to decode contracts", err)
	}
	return out, nil
}

func (s *MongoStore) List(ctx context.Context) ([]contracts.Contract, error) {
	return s.Search(ctx, SearchFilter{})
}

func (s *MongoStore) AddMemo(ctx context.Context, memo *contracts.RiskMemo) error {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	if memo.CreatedAt.IsZero() {
		memo.CreatedAt = time.Now().UTC()
	}

	// Stamp the contract first: it doubles as the existence check, so a
	// memo is never recorded against a missing contract.
	today := contracts.Today()
	res, err := s.contracts.UpdateOne(ctx,
		bson.M{"contract_id": memo.ContractID},
		bson.M{"$set": bson.M{"last_risk_memo_date": today}},
	)
	if err != nil {
		return storage.NewStoreError("registry", "AddMemo", "failed to stamp contract", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	if _, err := s.memos.InsertOne(ctx, memo); err != nil {
		return storage.NewStoreError("registry", "AddMemo", "failed to insert memo", err)
	}
	return nil
}

func (s *MongoStore) Memos(ctx context.Context, contractID string) ([]contracts.RiskMemo, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.DefaultTimeout)
	defer cancel()

	if _, err := s.Get(ctx, contractID); err != nil {
		return nil, err
	}

	cursor, err := s.memos.Find(ctx,
		bson.M{"contract_id": contractID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, storage.NewStoreError("registry", "Memos", "failed to query memos", err)
	}
	defer cursor.Close(ctx)

	var out []contracts.RiskMemo
	if err := cursor.All(ctx, &out); err != nil {
		return nil, storage.NewStoreError("registry", "Memos", "failed to decode memos", err)
	}
	return out, nil
}

// regexEscape quotes regex metacharacters so counterparty search stays a
// literal substring match.
func regexEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
