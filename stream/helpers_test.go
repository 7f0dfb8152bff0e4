package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
)

func TestKeyValue(t *testing.T) {
	tests := []struct {
		name string
		in   events.DynamoDBAttributeValue
		want types.AttributeValue
	}{
		{name: "string", in: events.NewStringAttribute("PROFILE#p1"), want: &types.AttributeValueMemberS{Value: "PROFILE#p1"}},
		{name: "empty string", in: events.NewStringAttribute(""), want: nil},
		{name: "number", in: events.NewNumberAttribute("158"), want: &types.AttributeValueMemberN{Value: "158"}},
		{name: "boolean", in: events.NewBooleanAttribute(true), want: nil},
		{name: "null", in: events.NewNullAttribute(), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keyValue(tt.in))
		})
	}
}
