package payments

// TopicPaymentEvents carries every payment and reservation lifecycle event.
const TopicPaymentEvents = "payment.events"

// Partition key = payment reference, so one payment's events stay ordered.
func PartitionKey(reference string) []byte { return []byte(reference) }
