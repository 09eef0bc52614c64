package aggregate

import (
	"sort"

	"github.com/yurifrl/courtbill/pkg/models"
)

// ByPerson groups bookings first by (person, purchase date) and then by person.
// Bookings are stable-sorted by purchase date first, so within a day items keep their
// export order and every person's days are ascending. Persons come out ordered by
// first and last name.
func ByPerson(bookings []*models.Booking) []*models.Consumption {
	sorted := make([]*models.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PurchasedAt.Before(sorted[j].PurchasedAt)
	})

	persons := make(map[models.PersonKey]*models.Consumption)
	var order []models.PersonKey

	for _, b := range sorted {
		c, ok := persons[b.Person]
		if !ok {
			c = &models.Consumption{Person: b.Person}
			persons[b.Person] = c
			order = append(order, b.Person)
		}
		c.Bookings = append(c.Bookings, b)

		// dates arrive ascending, so a person's current day is always the last one
		if n := len(c.Days); n == 0 || !c.Days[n-1].Date.Equal(b.PurchasedAt) {
			c.Days = append(c.Days, models.Day{Date: b.PurchasedAt})
		}
		d := &c.Days[len(c.Days)-1]
		d.Items = append(d.Items, b.Item)
		d.Quantities = append(d.Quantities, b.Quantity)
		d.Prices = append(d.Prices, b.Price)
	}

	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	out := make([]*models.Consumption, 0, len(order))
	for _, k := range order {
		out = append(out, persons[k])
	}
	return out
}
