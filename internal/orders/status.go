package orders

type Status string

const (
	StatusPending                   Status = "pending"
	StatusProcessing                Status = "processing"
	StatusShipped                   Status = "shipped"
	StatusDelivered                 Status = "delivered"
	StatusCancelled                 Status = "cancelled"
	StatusReturned                  Status = "returned"
	StatusDeliveredWithModification Status = "delivered_with_modification"
	StatusReturnNoShipping          Status = "return_no_shipping"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped: {
		StatusDelivered:                 true,
		StatusDeliveredWithModification: true,
		StatusReturned:                  true,
		StatusReturnNoShipping:          true,
	},
	StatusDelivered:                 {StatusReturned: true},
	StatusDeliveredWithModification: {StatusReturned: true},
	StatusCancelled:                 {},
	StatusReturned:                  {},
	StatusReturnNoShipping:          {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
