// Copyright 2026 Multibase
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names used by the model set.
const (
	CollUsers    = "users"
	CollPolls    = "polls"
	CollActivity = "activities"
	CollJobs     = "jobs"
	CollGroups   = "groups"
	CollTraining = "training_programs"
)

// ErrNotFound is returned when a record does not exist in the tenant's scope.
var ErrNotFound = errors.New("record not found")

// ErrInvalidID is returned when a record id is not a valid object id.
var ErrInvalidID = errors.New("invalid record id")

// ErrValidation tags record-field failures the client can correct. Only
// errors wrapping it are safe to echo back to API callers.
var ErrValidation = errors.New("validation failed")

// ModelSet is the group of record accessors bound to one tenant's database
// connection. Every accessor stamps and filters on the owning tenant's id:
// each tenant already has its own database, the tenant id filter is a second
// line of defense against a connection ever being shared.
type ModelSet struct {
	TenantID string

	Users      *UserStore
	Polls      *PollStore
	Activities *ActivityStore
	Jobs       *JobStore
	Groups     *GroupStore
	Training   *TrainingStore
}

// NewModelSet binds the record accessors to the given database. It is a pure
// function of (database, tenantID): calling it twice returns equivalent,
// independently usable sets.
func NewModelSet(db *mongo.Database, tenantID string) *ModelSet {
	return &ModelSet{
		TenantID:   tenantID,
		Users:      &UserStore{scoped{db.Collection(CollUsers), tenantID}},
		Polls:      &PollStore{scoped{db.Collection(CollPolls), tenantID}},
		Activities: &ActivityStore{scoped{db.Collection(CollActivity), tenantID}},
		Jobs:       &JobStore{scoped{db.Collection(CollJobs), tenantID}},
		Groups:     &GroupStore{scoped{db.Collection(CollGroups), tenantID}},
		Training:   &TrainingStore{scoped{db.Collection(CollTraining), tenantID}},
	}
}

// indexSpecs declares the composite indexes for the common query patterns.
// The tenant id prefixes every composite, which also serves as the mandatory
// tenant id index.
func indexSpecs() map[string][]mongo.IndexModel {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}

	return map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: asc("tenantId", "email"), Options: options.Index().SetUnique(true)},
		},
		CollPolls: {
			{Keys: asc("tenantId", "status")},
		},
		CollActivity: {
			{Keys: asc("tenantId", "userId")},
			{Keys: asc("tenantId", "action")},
		},
		CollJobs: {
			{Keys: asc("tenantId", "status")},
		},
		CollGroups: {
			{Keys: asc("tenantId", "name"), Options: options.Index().SetUnique(true)},
		},
		CollTraining: {
			{Keys: asc("tenantId", "status")},
		},
	}
}

// EnsureIndexes declares the model set's indexes on the tenant database.
// Index creation is idempotent on the server side.
func (m *ModelSet) EnsureIndexes(ctx context.Context) error {
	db := m.Users.coll.Database()
	for collName, specs := range indexSpecs() {
		if _, err := db.Collection(collName).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", collName, err)
		}
	}
	return nil
}

// scoped is the shared tenant-filtered collection handle.
type scoped struct {
	coll     *mongo.Collection
	tenantID string
}

// filter returns a query filter that always includes the tenant id.
func (s *scoped) filter(extra bson.M) bson.M {
	f := bson.M{"tenantId": s.tenantID}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

// idFilter returns a tenant-scoped filter for one record id.
func (s *scoped) idFilter(id string) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.filter(bson.M{"_id": oid}), nil
}

func (s *scoped) count(ctx context.Context, extra bson.M) (int64, error) {
	return s.coll.CountDocuments(ctx, s.filter(extra))
}

func (s *scoped) deleteByID(ctx context.Context, id string) error {
	f, err := s.idFilter(id)
	if err != nil {
		return err
	}
	result, err := s.coll.DeleteOne(ctx, f)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// updateByID applies a $set update plus an updatedAt touch.
func (s *scoped) updateByID(ctx context.Context, id string, fields bson.M) error {
	f, err := s.idFilter(id)
	if err != nil {
		return err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		// The tenant stamp is immutable.
		if k == "tenantId" || k == "_id" {
			continue
		}
		set[k] = v
	}

	result, err := s.coll.UpdateOne(ctx, f, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *scoped) listOpts(limit, skip int64) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}
	return opts
}

// UserStore accesses the tenant's users collection.
type UserStore struct {
	scoped
}

// Create inserts a user stamped with the owning tenant's id. The role
// defaults to RoleUser; unknown roles are rejected.
func (s *UserStore) Create(ctx context.Context, u *User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("%w: invalid role: %s", ErrValidation, u.Role)
	}

	now := time.Now().UTC()
	u.TenantID = s.tenantID
	u.CreatedAt = now
	u.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	f, err := s.idFilter(id)
	if err != nil {
		return nil, err
	}
	var u User
	if err := s.coll.FindOne(ctx, f).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.coll.FindOne(ctx, s.filter(bson.M{"email": email})).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, limit, skip int64) ([]User, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var users []User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) UpdateByID(ctx context.Context, id string, fields bson.M) error {
	return s.updateByID(ctx, id, fields)
}

func (s *UserStore) DeleteByID(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *UserStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

// PollStore accesses the tenant's polls collection.
type PollStore struct {
	scoped
}

func (s *PollStore) Create(ctx context.Context, p *Poll) error {
	if p.Type == "" {
		p.Type = PollSingleChoice
	}
	if !ValidPollType(p.Type) {
		return fmt.Errorf("%w: invalid poll type: %s", ErrValidation, p.Type)
	}
	if p.Status == "" {
		p.Status = PollDraft
	}
	if !ValidPollStatus(p.Status) {
		return fmt.Errorf("%w: invalid poll status: %s", ErrValidation, p.Status)
	}

	now := time.Now().UTC()
	p.TenantID = s.tenantID
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *PollStore) GetByID(ctx context.Context, id string) (*Poll, error) {
	f, err := s.idFilter(id)
	if err != nil {
		return nil, err
	}
	var p Poll
	if err := s.coll.FindOne(ctx, f).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PollStore) List(ctx context.Context, limit, skip int64) ([]Poll, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var polls []Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// ListByStatus uses the (tenantId, status) composite index.
func (s *PollStore) ListByStatus(ctx context.Context, status PollStatus, limit int64) ([]Poll, error) {
	cursor, err := s.coll.Find(ctx, s.filter(bson.M{"status": status}), s.listOpts(limit, 0))
	if err != nil {
		return nil, err
	}
	var polls []Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (s *PollStore) UpdateByID(ctx context.Context, id string, fields bson.M) error {
	return s.updateByID(ctx, id, fields)
}

func (s *PollStore) DeleteByID(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *PollStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

// ActivityStore accesses the tenant's activity log collection.
type ActivityStore struct {
	scoped
}

// Record appends an activity entry. Activities are immutable once written.
func (s *ActivityStore) Record(ctx context.Context, a *Activity) error {
	if a.Action == "" {
		return fmt.Errorf("%w: activity action must not be empty", ErrValidation)
	}

	a.TenantID = s.tenantID
	a.CreatedAt = time.Now().UTC()

	result, err := s.coll.InsertOne(ctx, a)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

func (s *ActivityStore) List(ctx context.Context, limit, skip int64) ([]Activity, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var entries []Activity
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByUser uses the (tenantId, userId) composite index.
func (s *ActivityStore) ListByUser(ctx context.Context, userID string, limit int64) ([]Activity, error) {
	cursor, err := s.coll.Find(ctx, s.filter(bson.M{"userId": userID}), s.listOpts(limit, 0))
	if err != nil {
		return nil, err
	}
	var entries []Activity
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListByAction uses the (tenantId, action) composite index.
func (s *ActivityStore) ListByAction(ctx context.Context, action string, limit int64) ([]Activity, error) {
	cursor, err := s.coll.Find(ctx, s.filter(bson.M{"action": action}), s.listOpts(limit, 0))
	if err != nil {
		return nil, err
	}
	var entries []Activity
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan removes activity entries past the tenant's retention
// horizon. Returns the number of entries removed.
func (s *ActivityStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, s.filter(bson.M{"createdAt": bson.M{"$lt": cutoff}}))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *ActivityStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

// JobStore accesses the tenant's job postings collection.
type JobStore struct {
	scoped
}

func (s *JobStore) Create(ctx context.Context, j *Job) error {
	if j.Type == "" {
		j.Type = JobFullTime
	}
	if !ValidJobType(j.Type) {
		return fmt.Errorf("%w: invalid job type: %s", ErrValidation, j.Type)
	}
	if j.Status == "" {
		j.Status = JobDraft
	}
	if !ValidJobStatus(j.Status) {
		return fmt.Errorf("%w: invalid job status: %s", ErrValidation, j.Status)
	}

	now := time.Now().UTC()
	j.TenantID = s.tenantID
	j.CreatedAt = now
	j.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, j)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		j.ID = oid
	}
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, id string) (*Job, error) {
	f, err := s.idFilter(id)
	if err != nil {
		return nil, err
	}
	var j Job
	if err := s.coll.FindOne(ctx, f).Decode(&j); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (s *JobStore) List(ctx context.Context, limit, skip int64) ([]Job, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var jobs []Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListByStatus uses the (tenantId, status) composite index.
func (s *JobStore) ListByStatus(ctx context.Context, status JobStatus, limit int64) ([]Job, error) {
	cursor, err := s.coll.Find(ctx, s.filter(bson.M{"status": status}), s.listOpts(limit, 0))
	if err != nil {
		return nil, err
	}
	var jobs []Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (s *JobStore) UpdateByID(ctx context.Context, id string, fields bson.M) error {
	return s.updateByID(ctx, id, fields)
}

func (s *JobStore) DeleteByID(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *JobStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

// GroupStore accesses the tenant's groups collection.
type GroupStore struct {
	scoped
}

func (s *GroupStore) Create(ctx context.Context, g *Group) error {
	if g.Name == "" {
		return fmt.Errorf("%w: group name must not be empty", ErrValidation)
	}

	now := time.Now().UTC()
	g.TenantID = s.tenantID
	g.CreatedAt = now
	g.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, g)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		g.ID = oid
	}
	return nil
}

func (s *GroupStore) GetByID(ctx context.Context, id string) (*Group, error) {
	f, err := s.idFilter(id)
	if err != nil {
		return nil, err
	}
	var g Group
	if err := s.coll.FindOne(ctx, f).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (s *GroupStore) List(ctx context.Context, limit, skip int64) ([]Group, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var groups []Group
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *GroupStore) UpdateByID(ctx context.Context, id string, fields bson.M) error {
	return s.updateByID(ctx, id, fields)
}

func (s *GroupStore) DeleteByID(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *GroupStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}

// TrainingStore accesses the tenant's training programs collection.
type TrainingStore struct {
	scoped
}

func (s *TrainingStore) Create(ctx context.Context, p *TrainingProgram) error {
	if p.Status == "" {
		p.Status = TrainingDraft
	}
	if !ValidTrainingStatus(p.Status) {
		return fmt.Errorf("%w: invalid training status: %s", ErrValidation, p.Status)
	}

	now := time.Now().UTC()
	p.TenantID = s.tenantID
	p.CreatedAt = now
	p.UpdatedAt = now

	result, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return nil
}

func (s *TrainingStore) GetByID(ctx context.Context, id string) (*TrainingProgram, error) {
	f, err := s.idFilter(id)
	if err != nil {
		return nil, err
	}
	var p TrainingProgram
	if err := s.coll.FindOne(ctx, f).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *TrainingStore) List(ctx context.Context, limit, skip int64) ([]TrainingProgram, error) {
	cursor, err := s.coll.Find(ctx, s.filter(nil), s.listOpts(limit, skip))
	if err != nil {
		return nil, err
	}
	var programs []TrainingProgram
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// ListByStatus uses the (tenantId, status) composite index.
func (s *TrainingStore) ListByStatus(ctx context.Context, status TrainingStatus, limit int64) ([]TrainingProgram, error) {
	cursor, err := s.coll.Find(ctx, s.filter(bson.M{"status": status}), s.listOpts(limit, 0))
	if err != nil {
		return nil, err
	}
	var programs []TrainingProgram
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

func (s *TrainingStore) UpdateByID(ctx context.Context, id string, fields bson.M) error {
	return s.updateByID(ctx, id, fields)
}

func (s *TrainingStore) DeleteByID(ctx context.Context, id string) error {
	return s.deleteByID(ctx, id)
}

func (s *TrainingStore) Count(ctx context.Context) (int64, error) {
	return s.count(ctx, nil)
}
