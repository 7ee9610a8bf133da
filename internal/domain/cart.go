package domain

// CartItem is one line of a student's cart. It carries only the ledger key
// and quantity; prices and names are snapshotted from the catalog at
// checkout time, not at add time.
type CartItem struct {
	ItemCode int    `json:"item_code"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Cart holds a student's pending lines before checkout turns them into a
// reservation bundle.
type Cart struct {
	StudentID string     `json:"student_id"`
	Items     []CartItem `json:"items"`
}

// TotalQuantity returns the total number of units across all lines.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Merge adds the given line to the cart, combining quantities when a line
// for the same (item code, size) key already exists.
func (c *Cart) Merge(item CartItem) {
	for i := range c.Items {
		if c.Items[i].ItemCode == item.ItemCode && c.Items[i].Size == item.Size {
			c.Items[i].Quantity += item.Quantity
			return
		}
	}
	c.Items = append(c.Items, item)
}

// Remove deletes the line for the given key, if present.
func (c *Cart) Remove(itemCode int, size string) {
	for i := range c.Items {
		if c.Items[i].ItemCode == itemCode && c.Items[i].Size == size {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}
