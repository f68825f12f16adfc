package materializer

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
)

// Section keys that carry relational sub-entities, and the question key holding the list.
const (
	DependentsSection    = "dependents"
	DependentsKey        = "dependents"
	OwnersSection        = "ownerInfo"
	OwnersKey            = "owners"
	VehiclesSection      = "incomeExpenses"
	VehiclesKey          = "vehicles"
	ContributionsSection = "deductions"
	ContributionsKey     = "charitableOrganizations"
)

func extractStructured(sectionKey string, qa models.OrderedMap, cipher encryption.Cipher) (Structured, []string, error) {
	var out Structured

	listKey := ""
	switch sectionKey {
	case DependentsSection:
		listKey = DependentsKey
	case OwnersSection:
		listKey = OwnersKey
	case VehiclesSection:
		listKey = VehiclesKey
	case ContributionsSection:
		listKey = ContributionsKey
	default:
		return out, nil, nil
	}

	entry, present := qa.Get(listKey)
	if !present {
		return out, nil, nil
	}

	items, ok, err := decodeList(subPayload(entry))
	if err != nil {
		return out, []string{fmt.Sprintf("%s: malformed %s list: %v", sectionKey, listKey, err)}, nil
	}
	if !ok {
		return out, nil, nil
	}

	objects := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, isObject := item.(map[string]any); isObject {
			objects = append(objects, m)
		}
	}

	switch sectionKey {
	case DependentsSection:
		out.Dependents, err = ParseDependents(objects, cipher)
	case OwnersSection:
		out.Owners, err = ParseBusinessOwners(objects, cipher)
	case VehiclesSection:
		out.Vehicles = ParseVehicles(objects)
	case ContributionsSection:
		out.Contributions = ParseContributions(objects)
	}
	return out, nil, err
}

// ParseDependents maps dependent objects to rows. Items without firstName are skipped and the
// SSN is encrypted.
func ParseDependents(items []map[string]any, cipher encryption.Cipher) ([]models.Dependent, error) {
	dependents := make([]models.Dependent, 0, len(items))
	for _, item := range items {
		firstName := str(item["firstName"])
		if firstName == "" {
			continue
		}
		ssn, err := encryptSSN(item["ssn"], cipher)
		if err != nil {
			return nil, err
		}
		dependents = append(dependents, models.Dependent{
			FirstName:          firstName,
			LastName:           str(item["lastName"]),
			SSN:                ssn,
			Relationship:       str(item["relationship"]),
			DateOfBirth:        date(item["dateOfBirth"]),
			MonthsLivedWithYou: int(answer.ToFloat(item["monthsLivedWithYou"])),
			IsFullTimeStudent:  answer.ToBool(item["isFullTimeStudent"]),
			ChildCareExpense:   answer.ToFloat(item["childCareExpense"]),
		})
	}
	return dependents, nil
}

// ParseBusinessOwners maps owner objects to rows. Items without firstName are skipped and the
// SSN is encrypted.
func ParseBusinessOwners(items []map[string]any, cipher encryption.Cipher) ([]models.BusinessOwner, error) {
	owners := make([]models.BusinessOwner, 0, len(items))
	for _, item := range items {
		firstName := str(item["firstName"])
		if firstName == "" {
			continue
		}
		ssn, err := encryptSSN(item["ssn"], cipher)
		if err != nil {
			return nil, err
		}
		owners = append(owners, models.BusinessOwner{
			FirstName:           firstName,
			Initial:             str(item["initial"]),
			LastName:            str(item["lastName"]),
			SSN:                 ssn,
			Address:             str(item["address"]),
			City:                str(item["city"]),
			State:               str(item["state"]),
			ZipCode:             str(item["zip"]),
			Country:             str(item["country"]),
			WorkPhone:           str(item["workTel"]),
			OwnershipPercentage: answer.ToFloat(item["ownershipPercentage"]),
		})
	}
	return owners, nil
}

func ParseVehicles(items []map[string]any) []models.Vehicle {
	vehicles := make([]models.Vehicle, 0, len(items))
	for _, item := range items {
		description := str(item["description"])
		if description == "" {
			continue
		}
		vehicles = append(vehicles, models.Vehicle{
			Description:         description,
			DatePlacedInService: date(item["datePlacedInService"]),
			TotalMiles:          int(answer.ToFloat(item["totalMiles"])),
			BusinessMiles:       int(answer.ToFloat(item["businessMiles"])),
		})
	}
	return vehicles
}

func ParseContributions(items []map[string]any) []models.CharitableContribution {
	contributions := make([]models.CharitableContribution, 0, len(items))
	for _, item := range items {
		name := str(item["name"])
		if name == "" {
			continue
		}
		contributions = append(contributions, models.CharitableContribution{
			OrganizationName: name,
			Amount:           answer.ToFloat(item["amount"]),
		})
	}
	return contributions
}

func encryptSSN(raw any, cipher encryption.Cipher) (string, error) {
	ssn := str(raw)
	if ssn == "" {
		return "", nil
	}
	return cipher.Encrypt(ssn)
}

func str(raw any) string {
	if raw == nil {
		return ""
	}
	return strings.TrimSpace(fieldtype.Stringify(raw))
}

// date keeps only the calendar day of a parseable value.
func date(raw any) *time.Time {
	s := str(raw)
	if s == "" {
		return nil
	}
	t, err := answer.ParseDate(s)
	if err != nil {
		return nil
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}
