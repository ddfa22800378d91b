package telemetry

import "go.opentelemetry.io/otel/attribute"

// attributeServiceName builds the service.name resource attribute.
func attributeServiceName(name string) attribute.KeyValue {
	return attribute.String("service.name", name)
}
