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
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the access level of a user within a tenant.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// PollType is the answer format of a poll.
type PollType string

const (
	PollSingleChoice   PollType = "single_choice"
	PollMultipleChoice PollType = "multiple_choice"
	PollRating         PollType = "rating"
	PollText           PollType = "text"
)

// ValidPollType reports whether t is a known poll type.
func ValidPollType(t PollType) bool {
	switch t {
	case PollSingleChoice, PollMultipleChoice, PollRating, PollText:
		return true
	}
	return false
}

// PollStatus is the lifecycle state of a poll.
type PollStatus string

const (
	PollDraft  PollStatus = "draft"
	PollActive PollStatus = "active"
	PollClosed PollStatus = "closed"
)

// ValidPollStatus reports whether s is a known poll status.
func ValidPollStatus(s PollStatus) bool {
	switch s {
	case PollDraft, PollActive, PollClosed:
		return true
	}
	return false
}

// JobType is the employment type of a job posting.
type JobType string

const (
	JobFullTime   JobType = "full-time"
	JobPartTime   JobType = "part-time"
	JobContract   JobType = "contract"
	JobInternship JobType = "internship"
)

// ValidJobType reports whether t is a known job type.
func ValidJobType(t JobType) bool {
	switch t {
	case JobFullTime, JobPartTime, JobContract, JobInternship:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobDraft     JobStatus = "draft"
	JobPublished JobStatus = "published"
	JobClosed    JobStatus = "closed"
)

// ValidJobStatus reports whether s is a known job status.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobDraft, JobPublished, JobClosed:
		return true
	}
	return false
}

// TrainingStatus is the lifecycle state of a training program.
type TrainingStatus string

const (
	TrainingDraft     TrainingStatus = "draft"
	TrainingPublished TrainingStatus = "published"
	TrainingArchived  TrainingStatus = "archived"
)

// ValidTrainingStatus reports whether s is a known training status.
func ValidTrainingStatus(s TrainingStatus) bool {
	switch s {
	case TrainingDraft, TrainingPublished, TrainingArchived:
		return true
	}
	return false
}

// User is a tenant member. Email is unique within a tenant; the tenantId
// field is mandatory and indexed so that even a shared connection could not
// leak records across tenants.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID  string             `bson:"tenantId" json:"tenant_id"`
	Email     string             `bson:"email" json:"email"`
	Name      string             `bson:"name" json:"name"`
	Role      Role               `bson:"role" json:"role"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Poll is a tenant-scoped question with a fixed answer format.
type Poll struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID  string             `bson:"tenantId" json:"tenant_id"`
	Question  string             `bson:"question" json:"question"`
	Type      PollType           `bson:"type" json:"type"`
	Status    PollStatus         `bson:"status" json:"status"`
	Options   []string           `bson:"options,omitempty" json:"options,omitempty"`
	CreatedBy string             `bson:"createdBy,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Activity is an audit record of one user action on one resource.
type Activity struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	TenantID     string                 `bson:"tenantId" json:"tenant_id"`
	UserID       string                 `bson:"userId" json:"user_id"`
	Action       string                 `bson:"action" json:"action"`
	ResourceType string                 `bson:"resourceType" json:"resource_type"`
	ResourceID   string                 `bson:"resourceId,omitempty" json:"resource_id,omitempty"`
	Details      map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt    time.Time              `bson:"createdAt" json:"created_at"`
}

// Job is a tenant-scoped job posting.
type Job struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID    string             `bson:"tenantId" json:"tenant_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Type        JobType            `bson:"type" json:"type"`
	Status      JobStatus          `bson:"status" json:"status"`
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Group is a named collection of tenant members.
type Group struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID    string             `bson:"tenantId" json:"tenant_id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	MemberIDs   []string           `bson:"memberIds,omitempty" json:"member_ids,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updated_at"`
}

// TrainingProgram is a tenant-scoped training module.
type TrainingProgram struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID      string             `bson:"tenantId" json:"tenant_id"`
	Title         string             `bson:"title" json:"title"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Status        TrainingStatus     `bson:"status" json:"status"`
	DurationHours int                `bson:"durationHours,omitempty" json:"duration_hours,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}
