package models

import (
	"time"

	"github.com/google/uuid"
)

type Dependent struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	SubmissionID       uuid.UUID  `db:"submission_id" json:"submission_id"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	SSN                string     `db:"ssn" json:"-"`
	Relationship       string     `db:"relationship" json:"relationship"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	MonthsLivedWithYou int        `db:"months_lived_with_you" json:"months_lived_with_you"`
	IsFullTimeStudent  bool       `db:"is_full_time_student" json:"is_full_time_student"`
	ChildCareExpense   float64    `db:"child_care_expense" json:"child_care_expense"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

func (Dependent) TableName() string {
	return "dependents"
}

func (d Dependent) FullName() string {
	return joinName(d.FirstName, d.LastName)
}

type BusinessOwner struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	SubmissionID        uuid.UUID `db:"submission_id" json:"submission_id"`
	FirstName           string    `db:"first_name" json:"first_name"`
	Initial             string    `db:"initial" json:"initial"`
	LastName            string    `db:"last_name" json:"last_name"`
	SSN                 string    `db:"ssn" json:"-"`
	Address             string    `db:"address" json:"address"`
	City                string    `db:"city" json:"city"`
	State               string    `db:"state" json:"state"`
	ZipCode             string    `db:"zip_code" json:"zip_code"`
	Country             string    `db:"country" json:"country"`
	WorkPhone           string    `db:"work_phone" json:"work_phone"`
	OwnershipPercentage float64   `db:"ownership_percentage" json:"ownership_percentage"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

func (BusinessOwner) TableName() string {
	return "business_owners"
}

func (o BusinessOwner) FullName() string {
	return joinName(o.FirstName, o.LastName)
}

type Vehicle struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	SubmissionID        uuid.UUID  `db:"submission_id" json:"submission_id"`
	Description         string     `db:"description" json:"description"`
	DatePlacedInService *time.Time `db:"date_placed_in_service" json:"date_placed_in_service,omitempty"`
	TotalMiles          int        `db:"total_miles" json:"total_miles"`
	BusinessMiles       int        `db:"business_miles" json:"business_miles"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

type CharitableContribution struct {
	ID               uuid.UUID `db:"id" json:"id"`
	SubmissionID     uuid.UUID `db:"submission_id" json:"submission_id"`
	OrganizationName string    `db:"organization_name" json:"organization_name"`
	Amount           float64   `db:"amount" json:"amount"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

func (CharitableContribution) TableName() string {
	return "charitable_contributions"
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
