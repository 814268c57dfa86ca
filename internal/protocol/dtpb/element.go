package dtpb

import (
	"fmt"

	"github.com/i-melnichenko/riak-wire/internal/datatype"
)

// Element converts the response value into a datatype wire element. A
// response without a value yields the empty element of its type.
func (m *FetchResponse) Element() (datatype.Element, error) {
	var kind datatype.Kind
	switch m.Type {
	case DataTypeCounter:
		kind = datatype.KindCounter
	case DataTypeSet:
		kind = datatype.KindSet
	case DataTypeMap:
		kind = datatype.KindMap
	default:
		return datatype.Element{}, fmt.Errorf("dtpb: unknown data type %d", m.Type)
	}

	el := datatype.Element{Kind: kind}
	if m.Value == nil {
		return el, nil
	}
	if m.Value.CounterValue != nil {
		el.Counter = *m.Value.CounterValue
	}
	el.Set = m.Value.SetValue
	el.Map = toMapEntries(m.Value.MapValue)
	return el, nil
}

// NewFetchResponse builds the response that carries el.
func NewFetchResponse(el datatype.Element, context []byte) (*FetchResponse, error) {
	m := &FetchResponse{Context: context, Value: &Value{}}
	switch el.Kind {
	case datatype.KindCounter:
		m.Type = DataTypeCounter
		c := el.Counter
		m.Value.CounterValue = &c
	case datatype.KindSet:
		m.Type = DataTypeSet
		m.Value.SetValue = el.Set
	case datatype.KindMap:
		m.Type = DataTypeMap
		m.Value.MapValue = fromMapEntries(el.Map)
	default:
		return nil, fmt.Errorf("dtpb: %s cannot be fetched on its own", el.Kind)
	}
	return m, nil
}

func toMapEntries(in []MapEntry) []datatype.MapEntry {
	if len(in) == 0 {
		return nil
	}
	out := make([]datatype.MapEntry, 0, len(in))
	for _, e := range in {
		de := datatype.MapEntry{
			Field:    datatype.MapKey{Name: string(e.Field.Name), Kind: datatype.Kind(e.Field.Type)},
			Set:      e.SetValue,
			Register: e.RegisterValue,
			Map:      toMapEntries(e.MapValue),
		}
		if e.Field.Type < MapFieldCounter || e.Field.Type > MapFieldMap {
			de.Field.Kind = datatype.KindUnknown
		}
		if e.CounterValue != nil {
			de.Counter = *e.CounterValue
		}
		if e.FlagValue != nil {
			de.Flag = *e.FlagValue
		}
		out = append(out, de)
	}
	return out
}

func fromMapEntries(in []datatype.MapEntry) []MapEntry {
	out := make([]MapEntry, 0, len(in))
	for _, de := range in {
		e := MapEntry{Field: MapField{Name: []byte(de.Field.Name), Type: MapFieldType(de.Field.Kind)}}
		switch de.Field.Kind {
		case datatype.KindCounter:
			c := de.Counter
			e.CounterValue = &c
		case datatype.KindSet:
			e.SetValue = de.Set
		case datatype.KindRegister:
			e.RegisterValue = de.Register
		case datatype.KindFlag:
			f := de.Flag
			e.FlagValue = &f
		case datatype.KindMap:
			e.MapValue = fromMapEntries(de.Map)
		}
		out = append(out, e)
	}
	return out
}
