package dtpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// FetchRequest is DtFetchReq. Nil option fields are not sent.
type FetchRequest struct {
	Bucket []byte
	Key    []byte
	Type   []byte

	R              *uint32
	PR             *uint32
	BasicQuorum    *bool
	NotFoundOK     *bool
	Timeout        *uint32
	SloppyQuorum   *bool
	NVal           *uint32
	IncludeContext *bool
}

// Marshal encodes the request body.
func (m *FetchRequest) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, m.Bucket)
	b = appendBytesField(b, 2, m.Key)
	b = appendBytesField(b, 3, m.Type)
	b = appendOptUint32(b, 4, m.R)
	b = appendOptUint32(b, 5, m.PR)
	b = appendOptBool(b, 6, m.BasicQuorum)
	b = appendOptBool(b, 7, m.NotFoundOK)
	b = appendOptUint32(b, 8, m.Timeout)
	b = appendOptBool(b, 9, m.SloppyQuorum)
	b = appendOptUint32(b, 10, m.NVal)
	b = appendOptBool(b, 11, m.IncludeContext)
	return b
}

// UnmarshalFetchRequest decodes a DtFetchReq body.
func UnmarshalFetchRequest(b []byte) (*FetchRequest, error) {
	m := &FetchRequest{}
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1, 2, 3:
			if !r.expect(num, typ, protowire.BytesType) {
				break
			}
			v := r.bytes()
			switch num {
			case 1:
				m.Bucket = v
			case 2:
				m.Key = v
			case 3:
				m.Type = v
			}
		case 4, 5, 8, 10:
			if !r.expect(num, typ, protowire.VarintType) {
				break
			}
			v := uint32(r.varint())
			switch num {
			case 4:
				m.R = &v
			case 5:
				m.PR = &v
			case 8:
				m.Timeout = &v
			case 10:
				m.NVal = &v
			}
		case 6, 7, 9, 11:
			if !r.expect(num, typ, protowire.VarintType) {
				break
			}
			v := protowire.DecodeBool(r.varint())
			switch num {
			case 6:
				m.BasicQuorum = &v
			case 7:
				m.NotFoundOK = &v
			case 9:
				m.SloppyQuorum = &v
			case 11:
				m.IncludeContext = &v
			}
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("dtpb: decode DtFetchReq: %w", r.err)
	}
	return m, nil
}

// DataType is the DtFetchResp.DataType enum.
type DataType int32

// DtFetchResp data types.
const (
	DataTypeCounter DataType = 1
	DataTypeSet     DataType = 2
	DataTypeMap     DataType = 3
)

// FetchResponse is DtFetchResp. Value is nil when the key was not found.
type FetchResponse struct {
	Context []byte
	Type    DataType
	Value   *Value
}

// Value is DtValue.
type Value struct {
	CounterValue *int64
	SetValue     [][]byte
	MapValue     []MapEntry
}

// MapFieldType is the MapField.MapFieldType enum.
type MapFieldType int32

// Map field types.
const (
	MapFieldCounter  MapFieldType = 1
	MapFieldSet      MapFieldType = 2
	MapFieldRegister MapFieldType = 3
	MapFieldFlag     MapFieldType = 4
	MapFieldMap      MapFieldType = 5
)

// MapField is the typed name of a map entry.
type MapField struct {
	Name []byte
	Type MapFieldType
}

// MapEntry is one field of a map value.
type MapEntry struct {
	Field         MapField
	CounterValue  *int64
	SetValue      [][]byte
	RegisterValue []byte
	FlagValue     *bool
	MapValue      []MapEntry
}

// Marshal encodes the response body.
func (m *FetchResponse) Marshal() []byte {
	var b []byte
	if m.Context != nil {
		b = appendBytesField(b, 1, m.Context)
	}
	b = appendVarintField(b, 2, uint64(m.Type))
	if m.Value != nil {
		b = appendBytesField(b, 3, m.Value.marshal())
	}
	return b
}

func (v *Value) marshal() []byte {
	var b []byte
	if v.CounterValue != nil {
		b = appendSint64Field(b, 1, *v.CounterValue)
	}
	for _, e := range v.SetValue {
		b = appendBytesField(b, 2, e)
	}
	for i := range v.MapValue {
		b = appendBytesField(b, 3, v.MapValue[i].marshal())
	}
	return b
}

func (e *MapEntry) marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, e.Field.marshal())
	if e.CounterValue != nil {
		b = appendSint64Field(b, 2, *e.CounterValue)
	}
	for _, s := range e.SetValue {
		b = appendBytesField(b, 3, s)
	}
	if e.RegisterValue != nil {
		b = appendBytesField(b, 4, e.RegisterValue)
	}
	if e.FlagValue != nil {
		b = appendBoolField(b, 5, *e.FlagValue)
	}
	for i := range e.MapValue {
		b = appendBytesField(b, 6, e.MapValue[i].marshal())
	}
	return b
}

func (f *MapField) marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, f.Name)
	b = appendVarintField(b, 2, uint64(f.Type))
	return b
}

// UnmarshalFetchResponse decodes a DtFetchResp body.
func UnmarshalFetchResponse(b []byte) (*FetchResponse, error) {
	m := &FetchResponse{}
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			if r.expect(num, typ, protowire.BytesType) {
				m.Context = r.bytes()
			}
		case 2:
			if r.expect(num, typ, protowire.VarintType) {
				m.Type = DataType(r.varint())
			}
		case 3:
			if !r.expect(num, typ, protowire.BytesType) {
				break
			}
			raw := r.bytes()
			if r.err != nil {
				break
			}
			v, err := unmarshalValue(raw)
			if err != nil {
				r.err = err
				break
			}
			m.Value = v
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("dtpb: decode DtFetchResp: %w", r.err)
	}
	return m, nil
}

func unmarshalValue(b []byte) (*Value, error) {
	v := &Value{}
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			if r.expect(num, typ, protowire.VarintType) {
				c := protowire.DecodeZigZag(r.varint())
				v.CounterValue = &c
			}
		case 2:
			if r.expect(num, typ, protowire.BytesType) {
				v.SetValue = append(v.SetValue, r.bytes())
			}
		case 3:
			if !r.expect(num, typ, protowire.BytesType) {
				break
			}
			raw := r.bytes()
			if r.err != nil {
				break
			}
			e, err := unmarshalMapEntry(raw)
			if err != nil {
				r.err = err
				break
			}
			v.MapValue = append(v.MapValue, e)
		default:
			r.skip(num, typ)
		}
	}
	return v, r.err
}

func unmarshalMapEntry(b []byte) (MapEntry, error) {
	var e MapEntry
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			if !r.expect(num, typ, protowire.BytesType) {
				break
			}
			raw := r.bytes()
			if r.err != nil {
				break
			}
			f, err := unmarshalMapField(raw)
			if err != nil {
				r.err = err
				break
			}
			e.Field = f
		case 2:
			if r.expect(num, typ, protowire.VarintType) {
				c := protowire.DecodeZigZag(r.varint())
				e.CounterValue = &c
			}
		case 3:
			if r.expect(num, typ, protowire.BytesType) {
				e.SetValue = append(e.SetValue, r.bytes())
			}
		case 4:
			if r.expect(num, typ, protowire.BytesType) {
				e.RegisterValue = r.bytes()
			}
		case 5:
			if r.expect(num, typ, protowire.VarintType) {
				f := protowire.DecodeBool(r.varint())
				e.FlagValue = &f
			}
		case 6:
			if !r.expect(num, typ, protowire.BytesType) {
				break
			}
			raw := r.bytes()
			if r.err != nil {
				break
			}
			nested, err := unmarshalMapEntry(raw)
			if err != nil {
				r.err = err
				break
			}
			e.MapValue = append(e.MapValue, nested)
		default:
			r.skip(num, typ)
		}
	}
	return e, r.err
}

func unmarshalMapField(b []byte) (MapField, error) {
	var f MapField
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			if r.expect(num, typ, protowire.BytesType) {
				f.Name = r.bytes()
			}
		case 2:
			if r.expect(num, typ, protowire.VarintType) {
				f.Type = MapFieldType(r.varint())
			}
		default:
			r.skip(num, typ)
		}
	}
	return f, r.err
}

// ErrorResponse is RpbErrorResp.
type ErrorResponse struct {
	Message []byte
	Code    uint32
}

// Marshal encodes the error body.
func (m *ErrorResponse) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, m.Message)
	b = appendVarintField(b, 2, uint64(m.Code))
	return b
}

// UnmarshalErrorResponse decodes an RpbErrorResp body.
func UnmarshalErrorResponse(b []byte) (*ErrorResponse, error) {
	m := &ErrorResponse{}
	r := &fieldReader{b: b}
	for {
		num, typ, ok := r.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			if r.expect(num, typ, protowire.BytesType) {
				m.Message = r.bytes()
			}
		case 2:
			if r.expect(num, typ, protowire.VarintType) {
				m.Code = uint32(r.varint())
			}
		default:
			r.skip(num, typ)
		}
	}
	if r.err != nil {
		return nil, fmt.Errorf("dtpb: decode RpbErrorResp: %w", r.err)
	}
	return m, nil
}

func appendOptUint32(b []byte, num protowire.Number, v *uint32) []byte {
	if v == nil {
		return b
	}
	return appendVarintField(b, num, uint64(*v))
}

func appendOptBool(b []byte, num protowire.Number, v *bool) []byte {
	if v == nil {
		return b
	}
	return appendBoolField(b, num, *v)
}
