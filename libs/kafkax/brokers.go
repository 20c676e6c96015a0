package kafkax

import "strings"

// SplitBrokers parses a comma separated broker list such as "kafka-1:9092, kafka-2:9092".
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
