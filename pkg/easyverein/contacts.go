package easyverein

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/yurifrl/courtbill/pkg/models"
)

type ContactService struct {
	client *Client
}

// ContactFilter narrows the directory listing. ExcludeGroup drops every contact of a
// contact group, e.g. companies.
type ContactFilter struct {
	ExcludeGroup string
}

type contactDetails struct {
	ID                   int64      `json:"id"`
	FirstName            string     `json:"firstName"`
	FamilyName           string     `json:"familyName"`
	Salutation           string     `json:"salutation"`
	Street               string     `json:"street"`
	Zip                  flexString `json:"zip"`
	City                 string     `json:"city"`
	PrimaryEmail         string     `json:"primaryEmail"`
	MethodOfPayment      int        `json:"methodOfPayment"`
	ContactDetailsGroups []string   `json:"contactDetailsGroups"`
}

// List returns every contact matching filter. Groups are left unclassified.
func (s *ContactService) List(ctx context.Context, filter ContactFilter) ([]*models.Contact, error) {
	query := url.Values{}
	if filter.ExcludeGroup != "" {
		query.Set("contactDetailsGroups__not", filter.ExcludeGroup)
	}

	raw, err := s.client.list(ctx, "contact-details", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	contacts := make([]*models.Contact, 0, len(raw))
	for _, r := range raw {
		var cd contactDetails
		if err := json.Unmarshal(r, &cd); err != nil {
			return nil, fmt.Errorf("failed to decode contact: %w", err)
		}
		contacts = append(contacts, &models.Contact{
			ID:              cd.ID,
			FirstName:       strings.TrimSpace(cd.FirstName),
			FamilyName:      strings.TrimSpace(cd.FamilyName),
			Salutation:      cd.Salutation,
			Street:          cd.Street,
			Zip:             string(cd.Zip),
			City:            cd.City,
			Email:           cd.PrimaryEmail,
			MethodOfPayment: cd.MethodOfPayment,
			Groups:          cd.ContactDetailsGroups,
		})
	}
	return contacts, nil
}

// flexString accepts JSON strings, numbers and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
