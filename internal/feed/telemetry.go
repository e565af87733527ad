package feed

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("internal/feed")
