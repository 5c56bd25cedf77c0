package prediction

import (
	"strconv"

	"github.com/liamcoop/churn/schema"
)

// customerIDColumns are the exact column names searched, in order, for row
// identifiers.
var customerIDColumns = []string{"customer_id", "CustomerID", "customerID", "customerId", "CustomerId"}

// rowIdentifiers returns one identifier per row: the values of the first
// customer id column present (null cells become ""), or "1".."N" when the
// table has none.
func rowIdentifiers(table *schema.Table) []string {
	ids := make([]string, table.NumRows())

	for _, name := range customerIDColumns {
		col, ok := table.Column(name)
		if !ok {
			continue
		}
		for i, cell := range col {
			if !cell.IsNull() {
				ids[i] = cell.Value
			}
		}
		return ids
	}

	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return ids
}
