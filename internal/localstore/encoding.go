package localstore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/fundraiser/store"
)

// sep separates the parts of a badger key. Ids never contain a NUL byte.
const sep = "\x00"

func tablePrefix(table string) []byte {
	return []byte(table + sep)
}

func partitionPrefix(table, pk string) []byte {
	return []byte(table + sep + pk + sep)
}

// encodeKey builds the badger key of an item: table, partition key value and
// sort key value separated by NUL.
func encodeKey(schema store.TableSchema, key store.PK) ([]byte, error) {
	pk, err := keyString(key[schema.PartitionKey])
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", schema.Name, schema.PartitionKey, err)
	}
	sk := ""
	if schema.SortKey != "" {
		sk, err = keyString(key[schema.SortKey])
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", schema.Name, schema.SortKey, err)
		}
	}
	return []byte(schema.Name + sep + pk + sep + sk), nil
}

func keyString(av types.AttributeValue) (string, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		if v.Value == "" {
			return "", store.ErrMissingKey
		}
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	case *types.AttributeValueMemberB:
		return string(v.Value), nil
	}
	return "", store.ErrMissingKey
}

// wireAV is a gob-encodable attribute value.
type wireAV struct {
	Type  string
	Value any
}

func init() {
	gob.Register(map[string]wireAV{})
	gob.Register([]wireAV{})
	gob.Register([]string{})
	gob.Register([][]byte{})
}

func serializeItem(item store.Item) ([]byte, error) {
	wire := make(map[string]wireAV, len(item))
	for k, v := range item {
		w, err := toWire(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		wire[k] = w
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wire); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeItem(data []byte) (store.Item, error) {
	var wire map[string]wireAV
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	item := make(store.Item, len(wire))
	for k, v := range wire {
		av, err := fromWire(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

func toWire(av types.AttributeValue) (wireAV, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return wireAV{Type: "S", Value: v.Value}, nil
	case *types.AttributeValueMemberN:
		return wireAV{Type: "N", Value: v.Value}, nil
	case *types.AttributeValueMemberB:
		return wireAV{Type: "B", Value: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return wireAV{Type: "BOOL", Value: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return wireAV{Type: "NULL", Value: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return wireAV{Type: "SS", Value: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return wireAV{Type: "NS", Value: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return wireAV{Type: "BS", Value: v.Value}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]wireAV, len(v.Value))
		for k, val := range v.Value {
			w, err := toWire(val)
			if err != nil {
				return wireAV{}, err
			}
			m[k] = w
		}
		return wireAV{Type: "M", Value: m}, nil
	case *types.AttributeValueMemberL:
		l := make([]wireAV, len(v.Value))
		for i, val := range v.Value {
			w, err := toWire(val)
			if err != nil {
				return wireAV{}, err
			}
			l[i] = w
		}
		return wireAV{Type: "L", Value: l}, nil
	}
	return wireAV{}, fmt.Errorf("unsupported attribute value type %T", av)
}

func fromWire(w wireAV) (types.AttributeValue, error) {
	switch w.Type {
	case "S":
		return &types.AttributeValueMemberS{Value: w.Value.(string)}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: w.Value.(string)}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: w.Value.([]byte)}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: w.Value.(bool)}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: w.Value.(bool)}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: w.Value.([]string)}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: w.Value.([]string)}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: w.Value.([][]byte)}, nil
	case "M":
		src := w.Value.(map[string]wireAV)
		m := make(map[string]types.AttributeValue, len(src))
		for k, val := range src {
			av, err := fromWire(val)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case "L":
		src := w.Value.([]wireAV)
		l := make([]types.AttributeValue, len(src))
		for i, val := range src {
			av, err := fromWire(val)
			if err != nil {
				return nil, err
			}
			l[i] = av
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	}
	return nil, fmt.Errorf("unsupported wire type %q", w.Type)
}
