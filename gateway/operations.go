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

package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"multibase/platform/tenancy/bind"
	"multibase/platform/tenancy/models"
)

// OpKind enumerates the record operations the gateway dispatches. The set
// is closed: an unknown kind is a client error, never a fallthrough.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpGet    OpKind = "get"
	OpList   OpKind = "list"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Resource enumerates the record collections the gateway exposes.
type Resource string

const (
	ResUsers    Resource = "users"
	ResPolls    Resource = "polls"
	ResActivity Resource = "activities"
	ResJobs     Resource = "jobs"
	ResGroups   Resource = "groups"
	ResTraining Resource = "training-programs"
)

// KnownResource reports whether the path segment names an exposed resource.
func KnownResource(r Resource) bool {
	switch r {
	case ResUsers, ResPolls, ResActivity, ResJobs, ResGroups, ResTraining:
		return true
	}
	return false
}

// Operation is one tenant-scoped record operation. Exactly one of the
// kind-specific fields is consulted per kind: Payload for create/update,
// ID for get/update/delete, Limit/Skip for list.
type Operation struct {
	Kind     OpKind
	Resource Resource
	ID       string
	Payload  json.RawMessage
	Limit    int64
	Skip     int64
}

// ErrUnsupportedOperation is wrapped around dispatch failures caused by the
// request shape rather than the data.
type ErrUnsupportedOperation struct {
	Kind     OpKind
	Resource Resource
}

func (e *ErrUnsupportedOperation) Error() string {
	return fmt.Sprintf("unsupported operation %s on %s", e.Kind, e.Resource)
}

func decodePayload(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: request body required", models.ErrValidation)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func decodeFields(raw json.RawMessage) (bson.M, error) {
	fields := map[string]interface{}{}
	if err := decodePayload(raw, &fields); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: update requires at least one field", models.ErrValidation)
	}
	return bson.M(fields), nil
}

// Dispatch executes one operation inside the bound tenant's scope. The
// switch is exhaustive over the closed resource and kind sets; anything
// else yields ErrUnsupportedOperation.
func Dispatch(ctx context.Context, tc *bind.TenantContext, op Operation) (interface{}, error) {
	m := tc.Models

	switch op.Resource {
	case ResUsers:
		switch op.Kind {
		case OpCreate:
			var u models.User
			if err := decodePayload(op.Payload, &u); err != nil {
				return nil, err
			}
			if err := m.Users.Create(ctx, &u); err != nil {
				return nil, err
			}
			return &u, nil
		case OpGet:
			return m.Users.GetByID(ctx, op.ID)
		case OpList:
			return m.Users.List(ctx, op.Limit, op.Skip)
		case OpUpdate:
			fields, err := decodeFields(op.Payload)
			if err != nil {
				return nil, err
			}
			if err := m.Users.UpdateByID(ctx, op.ID, fields); err != nil {
				return nil, err
			}
			return m.Users.GetByID(ctx, op.ID)
		case OpDelete:
			return nil, m.Users.DeleteByID(ctx, op.ID)
		}

	case ResPolls:
		switch op.Kind {
		case OpCreate:
			var p models.Poll
			if err := decodePayload(op.Payload, &p); err != nil {
				return nil, err
			}
			if err := m.Polls.Create(ctx, &p); err != nil {
				return nil, err
			}
			return &p, nil
		case OpGet:
			return m.Polls.GetByID(ctx, op.ID)
		case OpList:
			return m.Polls.List(ctx, op.Limit, op.Skip)
		case OpUpdate:
			fields, err := decodeFields(op.Payload)
			if err != nil {
				return nil, err
			}
			if err := m.Polls.UpdateByID(ctx, op.ID, fields); err != nil {
				return nil, err
			}
			return m.Polls.GetByID(ctx, op.ID)
		case OpDelete:
			return nil, m.Polls.DeleteByID(ctx, op.ID)
		}

	case ResActivity:
		switch op.Kind {
		case OpCreate:
			var a models.Activity
			if err := decodePayload(op.Payload, &a); err != nil {
				return nil, err
			}
			if err := m.Activities.Record(ctx, &a); err != nil {
				return nil, err
			}
			return &a, nil
		case OpList:
			return m.Activities.List(ctx, op.Limit, op.Skip)
		}
		// Activity entries are immutable: no get/update/delete by id.

	case ResJobs:
		switch op.Kind {
		case OpCreate:
			var j models.Job
			if err := decodePayload(op.Payload, &j); err != nil {
				return nil, err
			}
			if err := m.Jobs.Create(ctx, &j); err != nil {
				return nil, err
			}
			return &j, nil
		case OpGet:
			return m.Jobs.GetByID(ctx, op.ID)
		case OpList:
			return m.Jobs.List(ctx, op.Limit, op.Skip)
		case OpUpdate:
			fields, err := decodeFields(op.Payload)
			if err != nil {
				return nil, err
			}
			if err := m.Jobs.UpdateByID(ctx, op.ID, fields); err != nil {
				return nil, err
			}
			return m.Jobs.GetByID(ctx, op.ID)
		case OpDelete:
			return nil, m.Jobs.DeleteByID(ctx, op.ID)
		}

	case ResGroups:
		switch op.Kind {
		case OpCreate:
			var g models.Group
			if err := decodePayload(op.Payload, &g); err != nil {
				return nil, err
			}
			if err := m.Groups.Create(ctx, &g); err != nil {
				return nil, err
			}
			return &g, nil
		case OpGet:
			return m.Groups.GetByID(ctx, op.ID)
		case OpList:
			return m.Groups.List(ctx, op.Limit, op.Skip)
		case OpUpdate:
			fields, err := decodeFields(op.Payload)
			if err != nil {
				return nil, err
			}
			if err := m.Groups.UpdateByID(ctx, op.ID, fields); err != nil {
				return nil, err
			}
			return m.Groups.GetByID(ctx, op.ID)
		case OpDelete:
			return nil, m.Groups.DeleteByID(ctx, op.ID)
		}

	case ResTraining:
		switch op.Kind {
		case OpCreate:
			var p models.TrainingProgram
			if err := decodePayload(op.Payload, &p); err != nil {
				return nil, err
			}
			if err := m.Training.Create(ctx, &p); err != nil {
				return nil, err
			}
			return &p, nil
		case OpGet:
			return m.Training.GetByID(ctx, op.ID)
		case OpList:
			return m.Training.List(ctx, op.Limit, op.Skip)
		case OpUpdate:
			fields, err := decodeFields(op.Payload)
			if err != nil {
				return nil, err
			}
			if err := m.Training.UpdateByID(ctx, op.ID, fields); err != nil {
				return nil, err
			}
			return m.Training.GetByID(ctx, op.ID)
		case OpDelete:
			return nil, m.Training.DeleteByID(ctx, op.ID)
		}
	}

	return nil, &ErrUnsupportedOperation{Kind: op.Kind, Resource: op.Resource}
}
