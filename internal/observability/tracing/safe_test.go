package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsUnknownKeys(t *testing.T) {
	got := SafeAttributes(
		attribute.String("http.route", "/api/bills/:id"),
		attribute.String("owner_name", "someone"),
		attribute.String("request_id", strings.Repeat("x", 400)),
	)
	if assert.Len(t, got, 2) {
		assert.Equal(t, attribute.Key("http.route"), got[0].Key)
		assert.Len(t, got[1].Value.AsString(), maxAttributeLength)
	}
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	err := SafeError(errors.New(strings.Repeat("e", 1000)))
	assert.Len(t, err.Error(), maxAttributeLength)
}
