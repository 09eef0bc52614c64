package resolve

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/courtbill/pkg/models"
)

const (
	SalutationMale   = "Herr"
	SalutationFemale = "Frau"
	genderMale       = "Männlich"
)

var floatZip = regexp.MustCompile(`^(\d+)\.0+$`)

// Groups holds the contact-details-group ids that tag members and guests.
type Groups struct {
	Member string
	Guest  string
}

// Person is a consumer after both joins. Roster and Contact are nil when the join
// found nothing; Group stays GroupUnknown for everybody who cannot be invoiced.
type Person struct {
	Consumption *models.Consumption
	Roster      *models.RosterEntry
	Salutation  string
	PostalCode  string
	Phone       *string
	Mobile      *string
	Contact     *models.Contact
	Group       models.Group
}

func (p *Person) Key() models.PersonKey {
	return p.Consumption.Person
}

func (p *Person) Billable() bool {
	return p.Contact != nil && p.Group.Billable()
}

type directoryKey struct {
	person models.PersonKey
	zip    string
}

type Resolver struct {
	logger *log.Logger
	groups Groups
}

func New(logger *log.Logger, groups Groups) *Resolver {
	return &Resolver{logger: logger, groups: groups}
}

// Classify tags a contact as member or guest when its only group is the member or
// the guest group.
func (r *Resolver) Classify(c *models.Contact) models.Group {
	if len(c.Groups) != 1 {
		return models.GroupUnknown
	}
	switch groupID(c.Groups[0]) {
	case r.groups.Member:
		return models.GroupMember
	case r.groups.Guest:
		return models.GroupGuest
	default:
		return models.GroupUnknown
	}
}

// Resolve joins every consumption with the roster by name and then with the directory
// by name and postal code. Both are left joins: every consumption yields one Person.
// A blank postal code on either side never joins.
func (r *Resolver) Resolve(consumptions []*models.Consumption, roster []models.RosterEntry, directory []*models.Contact) []*Person {
	byName := make(map[models.PersonKey]*models.RosterEntry, len(roster))
	for i := range roster {
		e := &roster[i]
		if _, dup := byName[e.Person]; dup {
			r.logger.Warn("duplicate roster entry, keeping first", "person", e.Person)
			continue
		}
		byName[e.Person] = e
	}

	contacts := make(map[directoryKey]*models.Contact, len(directory))
	for _, c := range directory {
		c.Group = r.Classify(c)
		if c.Group == models.GroupUnknown {
			r.logger.Warn("unknown contact group", "contact_id", c.ID, "person", c.Key(), "groups", c.Groups)
			continue
		}
		zip := PostalCode(c.Zip)
		if zip == "" {
			r.logger.Warn("directory contact without postal code", "contact_id", c.ID, "person", c.Key())
			continue
		}
		k := directoryKey{person: c.Key(), zip: zip}
		if prev, dup := contacts[k]; dup {
			r.logger.Warn("duplicate directory contact, keeping first", "person", c.Key(), "kept", prev.ID, "dropped", c.ID)
			continue
		}
		contacts[k] = c
	}

	out := make([]*Person, 0, len(consumptions))
	for _, cons := range consumptions {
		p := &Person{Consumption: cons, Salutation: SalutationFemale}
		if e, ok := byName[cons.Person]; ok {
			p.Roster = e
			p.Salutation = Salutation(e.Gender)
			p.PostalCode = PostalCode(e.PostalCode)
			p.Phone = Phone(e.Phone)
			p.Mobile = Phone(e.Mobile)
		}
		if p.PostalCode == "" {
			out = append(out, p)
			continue
		}
		if c, ok := contacts[directoryKey{person: cons.Person, zip: p.PostalCode}]; ok {
			p.Contact = c
			p.Group = c.Group
		}
		out = append(out, p)
	}
	return out
}

// Salutation is binary: everything but "Männlich" is addressed as Frau.
func Salutation(gender string) string {
	if strings.TrimSpace(gender) == genderMale {
		return SalutationMale
	}
	return SalutationFemale
}

// PostalCode drops a float rendering ("82284.0") and keeps leading zeros.
func PostalCode(s string) string {
	s = strings.TrimSpace(s)
	if m := floatZip.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// Phone strips blanks and slashes; nil when nothing is left.
func Phone(s string) *string {
	cleaned := strings.NewReplacer(" ", "", "/", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// groupID returns the trailing id of a group reference, which the API hands out as
// a URL such as https://easyverein.com/api/v2.0/contact-details-group/187854580.
func groupID(ref string) string {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
