package observability

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrTool     = "tool"
	attrStatus   = "status"
	attrPayloads = "payloads"
)

func toolAttr(tool string) attribute.KeyValue {
	return attribute.String(attrTool, tool)
}

func statusAttr(status string) attribute.KeyValue {
	return attribute.String(attrStatus, status)
}

// payloadCountAttr buckets payload counts to "0" and "some" to keep
// cardinality flat.
func payloadCountAttr(count int) attribute.KeyValue {
	if count == 0 {
		return attribute.String(attrPayloads, "0")
	}
	return attribute.String(attrPayloads, "some")
}
