package events

// TopicConfiguration describes the destination topic of one aggregate's
// events. Partitions must match the broker-side partition count because
// converters assign partitions themselves instead of the producer.
type TopicConfiguration struct {
	Name       string
	Partitions int32
}
