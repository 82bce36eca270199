package events

import "strconv"

const (
	TopicOrderPlaced        = "storefront.order.placed"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicCartItemAdded      = "storefront.cart.item_added"
)

// Partition key = order number, supaya semua event 1 order maintain urutan.
func OrderKey(orderNumber int64) []byte { return []byte(strconv.FormatInt(orderNumber, 10)) }
