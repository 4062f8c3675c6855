package validation

const (
	// String lengths
	MaxReferenceIDLength = 64
	MaxDriverIDLength    = 64

	// Payload limits
	MaxPayloadKeys = 32

	// Discount bounds
	MaxDiscountPercentage = 100

	// Payload keys read by the action handlers
	PayloadPercentage = "percentage"
	PayloadAmount     = "amount"
	PayloadDriverID   = "driver_id"
)
